package dto

import (
	"time"

	"github.com/noah-isme/sma-announce-api/internal/models"
)

// AnnouncementView augments an announcement with per-viewer read state and
// the derived presentation badges.
type AnnouncementView struct {
	models.Announcement
	ScopeLabel     string  `json:"scope_label"`
	IsRead         bool    `json:"is_read"`
	IsNew          bool    `json:"is_new"`
	IsExpiringSoon bool    `json:"is_expiring_soon"`
	IsDueToday     bool    `json:"is_due_today"`
	IsAcknowledged bool    `json:"is_acknowledged"`
	AttachmentURL  *string `json:"attachment_url,omitempty"`
}

// FeedSummary aggregates dashboard counts over the viewer's visible set.
type FeedSummary struct {
	Total           int                      `json:"total"`
	Unread          int                      `json:"unread"`
	OutstandingAcks int                      `json:"outstanding_acks"`
	ByScope         map[models.ScopeKind]int `json:"by_scope"`
	ByPriority      map[models.Priority]int  `json:"by_priority"`
	GeneratedAt     time.Time                `json:"generated_at"`
}
