package models

import "time"

// ReadReceipt records that a viewer opened an announcement. Rows are
// append-only and unique per (announcement_id, viewer_id); read_at is set on
// first insert and never updated.
type ReadReceipt struct {
	AnnouncementID string    `db:"announcement_id" json:"announcement_id"`
	ViewerID       string    `db:"viewer_id" json:"viewer_id"`
	ReadAt         time.Time `db:"read_at" json:"read_at"`
}
