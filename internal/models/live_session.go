package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusLive      SessionStatus = "live"
	StatusEnded     SessionStatus = "ended"
	StatusCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no transition leaves this status.
func (s SessionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// Visibility controls who can discover a session.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// LiveSession is one scheduled/live/ended/cancelled live-video event owned by an influencer.
// Rows are never deleted; cancellation is a terminal status.
type LiveSession struct {
	ID           uuid.UUID     `json:"id"`
	InfluencerID uuid.UUID     `json:"influencer_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ThumbnailKey string        `json:"thumbnail_key,omitempty"`
	Visibility   Visibility    `json:"visibility"`
	HasShowcase  bool          `json:"has_showcase"`
	Status       SessionStatus `json:"status"`

	// ScheduledStartTime is required only while status is scheduled.
	ScheduledStartTime *time.Time `json:"scheduled_start_time,omitempty"`
	// ActualStartTime is set exactly once, on the transition to live.
	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`
	// EndTime is set exactly once, on the transition to ended or cancelled.
	EndTime *time.Time `json:"end_time,omitempty"`

	CurrentViewers     int   `json:"current_viewers"`
	PeakViewers        int   `json:"peak_viewers"`
	TotalUniqueViewers int   `json:"total_unique_viewers"`
	TotalMessages      int   `json:"total_messages"`
	TotalReactions     int   `json:"total_reactions"`
	TotalSalesCents    int64 `json:"total_sales_cents"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EndMetrics are optional final aggregates supplied when ending a session.
// Peak and unique viewers fold with MAX (callers report observed totals);
// sales fold with SUM (callers report increments).
type EndMetrics struct {
	PeakViewers        int   `json:"peak_viewers"`
	TotalUniqueViewers int   `json:"total_unique_viewers"`
	TotalSalesCents    int64 `json:"total_sales_cents"`
}

// WatchAccess describes whether viewers can actually subscribe to a live session.
type WatchAccess string

const (
	// WatchAccessFull means the owning influencer has a complete viewer credential pair.
	WatchAccessFull WatchAccess = "full"
	// WatchAccessLimited means the session is live but the viewer pair is missing,
	// so readers should surface restricted playback rather than an error.
	WatchAccessLimited WatchAccess = "limited"
)

// LiveSessionView is a discovery row: a live session plus its derived watch access.
type LiveSessionView struct {
	LiveSession
	WatchAccess WatchAccess `json:"watch_access"`
}
