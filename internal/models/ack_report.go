package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AckReportStatus tracks acknowledgement-report job progress.
type AckReportStatus string

const (
	AckReportStatusQueued  AckReportStatus = "QUEUED"
	AckReportStatusRunning AckReportStatus = "RUNNING"
	AckReportStatusDone    AckReportStatus = "DONE"
	AckReportStatusFailed  AckReportStatus = "FAILED"
)

// AckReportFormat selects the rendered output.
type AckReportFormat string

const (
	AckReportFormatCSV AckReportFormat = "CSV"
	AckReportFormatPDF AckReportFormat = "PDF"
)

// AckReportParams captures the job input, stored as JSONB.
type AckReportParams struct {
	AnnouncementID string          `json:"announcement_id"`
	Format         AckReportFormat `json:"format"`
}

// Value implements driver.Valuer for JSONB persistence.
func (p AckReportParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB persistence.
func (p *AckReportParams) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		return nil
	}
	return fmt.Errorf("unsupported ack report params type %T", src)
}

// AckReportJob is a persisted acknowledgement-report generation job for a
// must-read announcement.
type AckReportJob struct {
	ID           string          `db:"id" json:"id"`
	Params       AckReportParams `db:"params" json:"params"`
	Status       AckReportStatus `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	FilePath     *string         `db:"file_path" json:"file_path,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RequestedBy  string          `db:"requested_by" json:"requested_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	StartedAt    *time.Time      `db:"started_at" json:"started_at,omitempty"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}
