package models

import (
	"time"

	"github.com/google/uuid"
)

// DashboardStats aggregates an influencer's sessions for their dashboard.
type DashboardStats struct {
	InfluencerID       uuid.UUID `json:"influencer_id"`
	TotalSessions      int       `json:"total_sessions"`
	LiveNow            int       `json:"live_now"`
	PeakViewers        int       `json:"peak_viewers"`
	TotalUniqueViewers int       `json:"total_unique_viewers"`
	TotalMessages      int       `json:"total_messages"`
	TotalReactions     int       `json:"total_reactions"`
	TotalSalesCents    int64     `json:"total_sales_cents"`
}

// LiveStats summarizes everything live right now, across all influencers.
type LiveStats struct {
	LiveSessions int `json:"live_sessions"`
	TotalViewers int `json:"total_viewers"`
}

// AdminInfluencerRow is one row of the admin dashboard: influencer identity,
// credential provisioning state, and session aggregates. Derived view, never
// the system of record.
type AdminInfluencerRow struct {
	InfluencerID  uuid.UUID        `json:"influencer_id"`
	Email         string           `json:"email"`
	FullName      string           `json:"full_name"`
	Credential    CredentialStatus `json:"credential"`
	TotalSessions int              `json:"total_sessions"`
	LiveNow       int              `json:"live_now"`
	PeakViewers   int              `json:"peak_viewers"`
	JoinedAt      time.Time        `json:"joined_at"`
}
