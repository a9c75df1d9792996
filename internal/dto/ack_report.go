package dto

import (
	"time"

	"github.com/noah-isme/sma-announce-api/internal/models"
)

// AckReportRequest asks for an acknowledgement report.
type AckReportRequest struct {
	Format string `json:"format" validate:"required"`
}

// AckReportJobResponse is returned on job creation.
type AckReportJobResponse struct {
	ID       string                 `json:"id"`
	Status   models.AckReportStatus `json:"status"`
	Progress int                    `json:"progress"`
}

// AckReportStatusResponse exposes job state, including the signed download
// URL once the job has finished.
type AckReportStatusResponse struct {
	ID           string                 `json:"id"`
	Status       models.AckReportStatus `json:"status"`
	Progress     int                    `json:"progress"`
	DownloadURL  *string                `json:"download_url,omitempty"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty"`
}
