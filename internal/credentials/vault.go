package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
)

// Vault is the credential persistence contract. The Postgres Repository is the
// production implementation; MemoryVault backs service tests.
type Vault interface {
	GetByInfluencer(ctx context.Context, influencerID uuid.UUID) (*models.InfluencerCredential, error)
	Apply(ctx context.Context, influencerID uuid.UUID, upd PartialUpdate, tokenCreatedAt *time.Time) (*models.InfluencerCredential, error)
	SetEnabled(ctx context.Context, influencerID uuid.UUID, enabled bool) (*models.InfluencerCredential, error)
	BroadcastReady(ctx context.Context, influencerID uuid.UUID) (bool, error)
	ViewerAccessByInfluencer(ctx context.Context, influencerIDs []uuid.UUID) (map[uuid.UUID]models.WatchAccess, error)
	ListAdminRows(ctx context.Context) ([]models.AdminInfluencerRow, error)
}

var _ Vault = (*Repository)(nil)

// MemoryVault is an in-memory Vault.
type MemoryVault struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.InfluencerCredential
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{rows: make(map[uuid.UUID]*models.InfluencerCredential)}
}

var _ Vault = (*MemoryVault)(nil)

// Seed inserts an empty row for an influencer, as influencer initialization does.
func (v *MemoryVault) Seed(influencerID uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.rows[influencerID]; !ok {
		v.rows[influencerID] = &models.InfluencerCredential{
			InfluencerID: influencerID,
			UpdatedAt:    time.Now(),
		}
	}
}

func (v *MemoryVault) GetByInfluencer(_ context.Context, influencerID uuid.UUID) (*models.InfluencerCredential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := v.rows[influencerID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (v *MemoryVault) Apply(_ context.Context, influencerID uuid.UUID, upd PartialUpdate, tokenCreatedAt *time.Time) (*models.InfluencerCredential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := v.rows[influencerID]
	if !ok {
		row = &models.InfluencerCredential{InfluencerID: influencerID}
		v.rows[influencerID] = row
	}
	if upd.BroadcasterRoom != nil {
		row.BroadcasterRoom = *upd.BroadcasterRoom
	}
	if upd.BroadcasterToken != nil {
		row.BroadcasterToken = *upd.BroadcasterToken
	}
	if upd.ViewerRoom != nil {
		row.ViewerRoom = *upd.ViewerRoom
	}
	if upd.ViewerToken != nil {
		row.ViewerToken = *upd.ViewerToken
	}
	if tokenCreatedAt != nil {
		row.TokenCreatedAt = tokenCreatedAt
	}
	row.UpdatedAt = time.Now()
	cp := *row
	return &cp, nil
}

func (v *MemoryVault) SetEnabled(_ context.Context, influencerID uuid.UUID, enabled bool) (*models.InfluencerCredential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := v.rows[influencerID]
	if !ok {
		return nil, nil
	}
	row.IsStreamingEnabled = enabled
	row.UpdatedAt = time.Now()
	cp := *row
	return &cp, nil
}

func (v *MemoryVault) BroadcastReady(_ context.Context, influencerID uuid.UUID) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rows[influencerID].BroadcastReady(), nil
}

func (v *MemoryVault) ViewerAccessByInfluencer(_ context.Context, influencerIDs []uuid.UUID) (map[uuid.UUID]models.WatchAccess, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	access := make(map[uuid.UUID]models.WatchAccess, len(influencerIDs))
	for _, id := range influencerIDs {
		access[id] = v.rows[id].Access()
	}
	return access, nil
}

func (v *MemoryVault) ListAdminRows(_ context.Context) ([]models.AdminInfluencerRow, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.AdminInfluencerRow, 0, len(v.rows))
	for id, row := range v.rows {
		out = append(out, models.AdminInfluencerRow{
			InfluencerID: id,
			Credential:   row.Status(),
		})
	}
	return out, nil
}
