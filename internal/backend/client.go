package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"marlin/internal/exemption/models"
	dErrors "marlin/pkg/domain-errors"
)

// Client talks to the marine case management system that receives
// submitted exemption notifications.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitResponse struct {
	ApplicationReference string `json:"applicationReference"`
}

// SubmitExemption posts the completed exemption and returns the
// application reference assigned by the case management system.
func (c *Client) SubmitExemption(ctx context.Context, exm *models.Exemption) (string, error) {
	payload, err := json.Marshal(exm)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encoding exemption")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/exemptions", bytes.NewReader(payload))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "building submission request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "submitting exemption")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "reading submission response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.ErrorContext(ctx, "exemption submission rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("exemption_id", exm.ID.String()))
		return "", dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("case management system returned status %d", resp.StatusCode))
	}

	var out submitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "decoding submission response")
	}
	if out.ApplicationReference == "" {
		return "", dErrors.New(dErrors.CodeInternal, "submission response missing application reference")
	}

	return out.ApplicationReference, nil
}
