package session

import (
	"context"
	"encoding/json"
	"fmt"

	"marlin/internal/exemption/models"
	"marlin/pkg/platform/sentinel"
)

// Cache is the typed facade over the raw session store. It owns the JSON
// round-trip for the exemption aggregate so services deal in models only.
type Cache struct {
	store Store
}

func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Exemption loads the session's exemption aggregate.
// Returns sentinel.ErrNotFound when the session has none.
func (c *Cache) Exemption(ctx context.Context, sessionID string) (*models.Exemption, error) {
	raw, ok, err := c.store.Get(ctx, sessionID, KeyExemption)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	var exm models.Exemption
	if err := json.Unmarshal(raw, &exm); err != nil {
		return nil, fmt.Errorf("decode exemption: %w", err)
	}
	return &exm, nil
}

// StageExemption stages the aggregate without committing, for callers that
// batch several writes into one commit.
func (c *Cache) StageExemption(ctx context.Context, sessionID string, exm *models.Exemption) error {
	raw, err := json.Marshal(exm)
	if err != nil {
		return fmt.Errorf("encode exemption: %w", err)
	}
	return c.store.Set(ctx, sessionID, KeyExemption, raw)
}

// SaveExemption stages the aggregate and commits in one step. This is
// the normal one-commit-per-logical-change path.
func (c *Cache) SaveExemption(ctx context.Context, sessionID string, exm *models.Exemption) error {
	if err := c.StageExemption(ctx, sessionID, exm); err != nil {
		return err
	}
	return c.store.Commit(ctx, sessionID)
}

// Commit persists everything staged for the session.
func (c *Cache) Commit(ctx context.Context, sessionID string) error {
	return c.store.Commit(ctx, sessionID)
}

// SavedSiteDetails loads the pre-edit site details snapshot, if any.
func (c *Cache) SavedSiteDetails(ctx context.Context, sessionID string) ([]models.SiteDetail, error) {
	raw, ok, err := c.store.Get(ctx, sessionID, KeySavedSiteDetails)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	var siteDetails []models.SiteDetail
	if err := json.Unmarshal(raw, &siteDetails); err != nil {
		return nil, fmt.Errorf("decode saved site details: %w", err)
	}
	return siteDetails, nil
}

// SaveSiteDetailsSnapshot stores a copy of the site details for later
// restore and commits it.
func (c *Cache) SaveSiteDetailsSnapshot(ctx context.Context, sessionID string, siteDetails []models.SiteDetail) error {
	raw, err := json.Marshal(siteDetails)
	if err != nil {
		return fmt.Errorf("encode saved site details: %w", err)
	}
	if err := c.store.Set(ctx, sessionID, KeySavedSiteDetails, raw); err != nil {
		return err
	}
	return c.store.Commit(ctx, sessionID)
}

// Destroy drops the whole session.
func (c *Cache) Destroy(ctx context.Context, sessionID string) error {
	return c.store.Destroy(ctx, sessionID)
}
