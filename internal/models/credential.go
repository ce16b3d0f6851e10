package models

import (
	"time"

	"github.com/google/uuid"
)

// InfluencerCredential holds per-influencer streaming material: a broadcaster
// room/token pair used to publish and an independent viewer pair used to
// subscribe read-only. Tokens are opaque to this service; only presence is
// checked. One row per influencer, created empty at profile creation and
// mutated only through the admin-mediated issuance service.
// IsStreamingEnabled gates going live independently of credential presence.
type InfluencerCredential struct {
	InfluencerID       uuid.UUID  `json:"influencer_id"`
	BroadcasterRoom    string     `json:"broadcaster_room"`
	BroadcasterToken   string     `json:"-"`
	ViewerRoom         string     `json:"viewer_room"`
	ViewerToken        string     `json:"-"`
	IsStreamingEnabled bool       `json:"is_streaming_enabled"`
	TokenCreatedAt     *time.Time `json:"token_created_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// BroadcastReady reports whether the influencer may start a stream:
// the gate is enabled and the broadcaster pair is complete.
func (c *InfluencerCredential) BroadcastReady() bool {
	return c != nil && c.IsStreamingEnabled && c.BroadcasterRoom != "" && c.BroadcasterToken != ""
}

// ViewerReady reports whether viewers can subscribe. Independent of the
// broadcast gate: a stream can be live yet only watchable with limited access.
func (c *InfluencerCredential) ViewerReady() bool {
	return c != nil && c.ViewerRoom != "" && c.ViewerToken != ""
}

// Access returns the derived watch access for sessions owned by this influencer.
func (c *InfluencerCredential) Access() WatchAccess {
	if c.ViewerReady() {
		return WatchAccessFull
	}
	return WatchAccessLimited
}

// CredentialStatus is the admin read view of one influencer's provisioning state.
// Token values are reduced to presence flags; the raw strings never leave the vault
// through this view.
type CredentialStatus struct {
	InfluencerID        uuid.UUID   `json:"influencer_id"`
	BroadcasterRoom     string      `json:"broadcaster_room"`
	HasBroadcasterToken bool        `json:"has_broadcaster_token"`
	ViewerRoom          string      `json:"viewer_room"`
	HasViewerToken      bool        `json:"has_viewer_token"`
	IsStreamingEnabled  bool        `json:"is_streaming_enabled"`
	BroadcastReady      bool        `json:"broadcast_ready"`
	WatchAccess         WatchAccess `json:"watch_access"`
	TokenCreatedAt      *time.Time  `json:"token_created_at,omitempty"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Status derives the presence-flag view from a vault row.
func (c *InfluencerCredential) Status() CredentialStatus {
	return CredentialStatus{
		InfluencerID:        c.InfluencerID,
		BroadcasterRoom:     c.BroadcasterRoom,
		HasBroadcasterToken: c.BroadcasterToken != "",
		ViewerRoom:          c.ViewerRoom,
		HasViewerToken:      c.ViewerToken != "",
		IsStreamingEnabled:  c.IsStreamingEnabled,
		BroadcastReady:      c.BroadcastReady(),
		WatchAccess:         c.Access(),
		TokenCreatedAt:      c.TokenCreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}
