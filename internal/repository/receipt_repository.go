package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-announce-api/internal/models"
)

// ReceiptRepository persists read receipts.
type ReceiptRepository struct {
	db *sqlx.DB
}

// NewReceiptRepository creates the repository.
func NewReceiptRepository(db *sqlx.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Insert records a receipt for the pair, relying on the uniqueness
// constraint to make concurrent calls collapse into a single row. Returns
// true when a row was written, false when the pair was already marked.
func (r *ReceiptRepository) Insert(ctx context.Context, announcementID, viewerID string) (bool, error) {
	const query = `INSERT INTO read_receipts (announcement_id, viewer_id, read_at)
VALUES ($1, $2, $3)
ON CONFLICT (announcement_id, viewer_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, announcementID, viewerID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert read receipt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert read receipt: %w", err)
	}
	return affected > 0, nil
}

// ReadSet returns every announcement id the viewer has opened.
func (r *ReceiptRepository) ReadSet(ctx context.Context, viewerID string) ([]string, error) {
	var ids []string
	const query = `SELECT announcement_id FROM read_receipts WHERE viewer_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, viewerID); err != nil {
		return nil, fmt.Errorf("load read set: %w", err)
	}
	return ids, nil
}

// ListByAnnouncement returns the receipts for one announcement ordered by
// read time, for acknowledgement reporting.
func (r *ReceiptRepository) ListByAnnouncement(ctx context.Context, announcementID string) ([]models.ReadReceipt, error) {
	var receipts []models.ReadReceipt
	const query = `SELECT announcement_id, viewer_id, read_at FROM read_receipts
WHERE announcement_id = $1 ORDER BY read_at ASC, viewer_id ASC`
	if err := r.db.SelectContext(ctx, &receipts, query, announcementID); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return receipts, nil
}
