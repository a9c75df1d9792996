package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-announce-api/internal/dto"
	"github.com/noah-isme/sma-announce-api/internal/models"
	"github.com/noah-isme/sma-announce-api/internal/service"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
	"github.com/noah-isme/sma-announce-api/pkg/response"
)

// AckReportHandler exposes acknowledgement-report endpoints.
type AckReportHandler struct {
	reports *service.AckReportService
}

// NewAckReportHandler constructs handler.
func NewAckReportHandler(reports *service.AckReportService) *AckReportHandler {
	return &AckReportHandler{reports: reports}
}

// Create godoc
// @Summary Queue an acknowledgement report
// @Tags AckReports
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body dto.AckReportRequest true "Report payload"
// @Success 202 {object} response.Envelope
// @Router /announcements/{id}/ack-report [post]
func (h *AckReportHandler) Create(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AckReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.reports.CreateJob(c.Request.Context(), viewer, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Acknowledgement report status
// @Tags AckReports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /ack-reports/{id} [get]
func (h *AckReportHandler) Status(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.reports.GetStatus(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished acknowledgement report
// @Tags AckReports
// @Produce octet-stream
// @Param id path string true "Job ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /ack-reports/{id}/download [get]
func (h *AckReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report file"))
		return
	}
	contentType := "text/csv"
	if download.Format == models.AckReportFormatPDF {
		contentType = "application/pdf"
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
