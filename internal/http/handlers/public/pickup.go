package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/vrl-pickup/internal/http/response"
	"github.com/vrl-pickup/internal/models"
	"github.com/vrl-pickup/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePickup 客户提交取件请求
func (h *Handler) CreatePickup(c *gin.Context) {
	var input service.CreatePickupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	request, err := h.PickupService.Create(input)
	if err != nil {
		if errors.Is(err, service.ErrPickupValidation) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to create pickup request", err)
		return
	}

	requestLog(c).Infow("pickup_request_submitted", "pickup_request_id", request.ID)
	response.Success(c, gin.H{
		"id":           request.ID,
		"status":       request.Status,
		"requested_at": request.RequestedAt,
	})
}

// CustomerPickupDetail 客户侧详情返回
type CustomerPickupDetail struct {
	models.PickupRequest
	History []models.RequestStatusHistory `json:"history"`
}

// GetPickup 客户查询取件请求详情（需携带提交时的邮箱）
func (h *Handler) GetPickup(c *gin.Context) {
	pickupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || pickupID == 0 {
		respondError(c, response.CodeBadRequest, "invalid pickup request id", nil)
		return
	}
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		respondError(c, response.CodeBadRequest, "email is required", nil)
		return
	}

	request, err := h.PickupService.GetForCustomer(uint(pickupID), email)
	if err != nil {
		if errors.Is(err, service.ErrPickupNotFound) {
			respondError(c, response.CodeNotFound, "pickup request not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to load pickup request", err)
		return
	}

	history, err := h.PickupService.History(request.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to load pickup request", err)
		return
	}

	response.Success(c, CustomerPickupDetail{
		PickupRequest: *request,
		History:       history,
	})
}
