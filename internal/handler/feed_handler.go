package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-announce-api/internal/dto"
	"github.com/noah-isme/sma-announce-api/internal/middleware"
	"github.com/noah-isme/sma-announce-api/internal/models"
	"github.com/noah-isme/sma-announce-api/internal/service"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
	"github.com/noah-isme/sma-announce-api/pkg/response"
)

type feedProvider interface {
	Feed(ctx context.Context, viewer models.ViewerContext, req service.FeedRequest) ([]dto.AnnouncementView, *models.Pagination, error)
	Summary(ctx context.Context, viewer models.ViewerContext) (*dto.FeedSummary, bool, error)
}

type readMarker interface {
	MarkRead(ctx context.Context, announcementID, viewerID string) error
}

// FeedHandler exposes the viewer-facing feed endpoints.
type FeedHandler struct {
	feed     feedProvider
	receipts readMarker
}

// NewFeedHandler constructs handler.
func NewFeedHandler(feed feedProvider, receipts readMarker) *FeedHandler {
	return &FeedHandler{feed: feed, receipts: receipts}
}

// Feed godoc
// @Summary Personal announcement feed
// @Tags Feed
// @Produce json
// @Param includeExpired query bool false "Include announcements past their validity window"
// @Param search query string false "Case-insensitive title/body filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /feed [get]
func (h *FeedHandler) Feed(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req := service.FeedRequest{
		IncludeExpired: c.Query("includeExpired") == "true",
		Search:         c.Query("search"),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.Query("pageSize")); err == nil {
		req.PageSize = size
	}

	views, pagination, err := h.feed.Feed(c.Request.Context(), viewer, req)
	if err != nil {
		// Store failures degrade to an empty feed; the meta flag tells
		// clients the read is safe to retry.
		if appErrors.FromError(err).Code == appErrors.ErrInternal.Code {
			middleware.SetRetryable(c, true)
			response.JSON(c, http.StatusOK, []dto.AnnouncementView{}, nil, middleware.ExtractMeta(c))
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination, middleware.ExtractMeta(c))
}

// Summary godoc
// @Summary Feed summary counts
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /feed/summary [get]
func (h *FeedHandler) Summary(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, cacheHit, err := h.feed.Summary(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// MarkRead godoc
// @Summary Mark announcement as read
// @Tags Feed
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id}/read [post]
func (h *FeedHandler) MarkRead(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.receipts.MarkRead(c.Request.Context(), c.Param("id"), viewer.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "read"}, nil)
}
