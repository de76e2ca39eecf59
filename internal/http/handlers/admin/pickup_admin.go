package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vrl-pickup/internal/cache"
	"github.com/vrl-pickup/internal/http/response"
	"github.com/vrl-pickup/internal/repository"
	"github.com/vrl-pickup/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statsCacheKey = "pickup:stats"
	statsCacheTTL = 30 * time.Second
)

// AdminListPickups 管理端取件请求列表
func (h *Handler) AdminListPickups(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	city := strings.TrimSpace(c.Query("city"))
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	search := strings.TrimSpace(c.Query("search"))
	requestedFromRaw := strings.TrimSpace(c.Query("requested_from"))
	requestedToRaw := strings.TrimSpace(c.Query("requested_to"))

	requestedFrom, err := parseTimeNullable(requestedFromRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid requested_from", err)
		return
	}
	requestedTo, err := parseTimeNullable(requestedToRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid requested_to", err)
		return
	}

	requests, total, err := h.PickupService.ListAdmin(repository.PickupListFilter{
		Page:          page,
		PageSize:      pageSize,
		Status:        status,
		City:          city,
		Email:         email,
		Search:        search,
		RequestedFrom: requestedFrom,
		RequestedTo:   requestedTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "failed to load pickup requests", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, requests, pagination)
}

// AdminGetPickupStats 各状态请求数量统计（短 TTL 缓存，状态流转时失效）
func (h *Handler) AdminGetPickupStats(c *gin.Context) {
	var cached service.PickupStats
	if ok, err := cache.GetJSON(c.Request.Context(), statsCacheKey, &cached); err == nil && ok {
		response.Success(c, cached)
		return
	}

	stats, err := h.PickupService.Stats()
	if err != nil {
		respondError(c, response.CodeInternal, "failed to load pickup stats", err)
		return
	}
	if err := cache.SetJSON(c.Request.Context(), statsCacheKey, stats, statsCacheTTL); err != nil {
		requestLog(c).Warnw("pickup_stats_cache_write_failed", "error", err)
	}
	response.Success(c, stats)
}

// AdminGetPickup 管理端取件请求详情
func (h *Handler) AdminGetPickup(c *gin.Context) {
	pickupID, ok := parsePickupID(c)
	if !ok {
		return
	}
	request, err := h.PickupService.GetAdmin(pickupID)
	if err != nil {
		respondPickupFetchError(c, err)
		return
	}
	response.Success(c, request)
}

// AdminGetPickupHistory 管理端状态流转记录
func (h *Handler) AdminGetPickupHistory(c *gin.Context) {
	pickupID, ok := parsePickupID(c)
	if !ok {
		return
	}
	entries, err := h.PickupService.History(pickupID)
	if err != nil {
		respondPickupFetchError(c, err)
		return
	}
	response.Success(c, entries)
}

// AdminGetPickupInvoice 下载取件请求发票 PDF
func (h *Handler) AdminGetPickupInvoice(c *gin.Context) {
	pickupID, ok := parsePickupID(c)
	if !ok {
		return
	}
	request, err := h.PickupService.GetAdmin(pickupID)
	if err != nil {
		respondPickupFetchError(c, err)
		return
	}
	if request.Invoice == nil {
		respondError(c, response.CodeNotFound, "invoice not generated", nil)
		return
	}
	pdfBytes, filename, err := h.InvoiceService.BuildInvoicePDF(request, request.Invoice)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to render invoice", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "application/pdf", pdfBytes)
}

// UpdateStatusRequest 状态流转请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// TransitionResponse 状态流转响应
type TransitionResponse struct {
	Request           interface{} `json:"request"`
	Invoice           interface{} `json:"invoice,omitempty"`
	NotificationError string      `json:"notification_error,omitempty"`
}

// AdminUpdatePickupStatus 应用状态流转
func (h *Handler) AdminUpdatePickupStatus(c *gin.Context) {
	pickupID, ok := parsePickupID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	result, err := h.PickupService.ApplyTransition(pickupID, req.Status, getAdminUsername(c), req.Notes)
	if err != nil {
		respondPickupTransitionError(c, err)
		return
	}
	invalidateStatsCache(c)

	resp := TransitionResponse{Request: result.Request}
	if result.Invoice != nil {
		resp.Invoice = result.Invoice
	}
	if result.NotificationErr != nil {
		resp.NotificationError = result.NotificationErr.Error()
	}
	response.Success(c, resp)
}

// BulkUpdateStatusRequest 批量状态流转请求
type BulkUpdateStatusRequest struct {
	IDs    []uint `json:"ids" binding:"required,min=1"`
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// AdminBulkUpdatePickupStatus 批量应用状态流转
func (h *Handler) AdminBulkUpdatePickupStatus(c *gin.Context) {
	var req BulkUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	result := h.PickupService.ApplyBulkTransition(req.IDs, req.Status, getAdminUsername(c), req.Notes)
	if result.Updated > 0 {
		invalidateStatsCache(c)
	}
	response.Success(c, result)
}

// AdminResendPickupNotification 重发审核结果通知
func (h *Handler) AdminResendPickupNotification(c *gin.Context) {
	pickupID, ok := parsePickupID(c)
	if !ok {
		return
	}
	if err := h.PickupService.ResendDecisionNotification(pickupID); err != nil {
		switch {
		case errors.Is(err, service.ErrPickupNotFound):
			respondError(c, response.CodeNotFound, "pickup request not found", nil)
		case errors.Is(err, service.ErrInvalidTransition):
			respondError(c, response.CodeBadRequest, "request has no decision to notify", nil)
		case errors.Is(err, service.ErrNotificationDelivery):
			respondError(c, response.CodeInternal, "notification delivery failed", err)
		default:
			respondError(c, response.CodeInternal, "failed to resend notification", err)
		}
		return
	}
	response.SuccessWithMsg(c, "notification sent", nil)
}

func invalidateStatsCache(c *gin.Context) {
	if err := cache.Del(c.Request.Context(), statsCacheKey); err != nil {
		requestLog(c).Warnw("pickup_stats_cache_invalidate_failed", "error", err)
	}
}

func parsePickupID(c *gin.Context) (uint, bool) {
	pickupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || pickupID == 0 {
		respondError(c, response.CodeBadRequest, "invalid pickup request id", nil)
		return 0, false
	}
	return uint(pickupID), true
}

func respondPickupFetchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPickupNotFound):
		respondError(c, response.CodeNotFound, "pickup request not found", nil)
	default:
		respondError(c, response.CodeInternal, "failed to load pickup request", err)
	}
}

func respondPickupTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPickupNotFound):
		respondError(c, response.CodeNotFound, "pickup request not found", nil)
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(c, response.CodeBadRequest, "status transition not allowed", nil)
	default:
		respondError(c, response.CodeInternal, "failed to update pickup status", err)
	}
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &parsed, nil
		}
	}
	return nil, errors.New("unsupported time format: " + raw)
}
