package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/vrl-pickup/internal/constants"
	"github.com/vrl-pickup/internal/logger"
	"github.com/vrl-pickup/internal/models"
	"github.com/vrl-pickup/internal/queue"
	"github.com/vrl-pickup/internal/repository"

	"gorm.io/gorm"
)

// allowedTransitions 状态机允许的流转边。
// rejected 与 completed 为终态；重复应用已满足的目标状态同样视为非法流转。
var allowedTransitions = map[string]map[string]bool{
	constants.PickupStatusPending: {
		constants.PickupStatusAccepted:  true,
		constants.PickupStatusRejected:  true,
		constants.PickupStatusCompleted: true,
	},
	constants.PickupStatusAccepted: {
		constants.PickupStatusCompleted: true,
	},
}

func isTransitionAllowed(current, target string) bool {
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

var (
	phonePattern   = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// DecisionNotifier 审核结果通知接口
type DecisionNotifier interface {
	NotifyDecision(request *models.PickupRequest, invoice *models.Invoice, outcome string) error
}

// PickupService 取件请求服务
type PickupService struct {
	pickupRepo     repository.PickupRequestRepository
	historyRepo    repository.StatusHistoryRepository
	invoiceService *InvoiceService
	notifier       DecisionNotifier
	queueClient    *queue.Client
}

// NewPickupService 创建取件请求服务
func NewPickupService(
	pickupRepo repository.PickupRequestRepository,
	historyRepo repository.StatusHistoryRepository,
	invoiceService *InvoiceService,
	notifier DecisionNotifier,
	queueClient *queue.Client,
) *PickupService {
	return &PickupService{
		pickupRepo:     pickupRepo,
		historyRepo:    historyRepo,
		invoiceService: invoiceService,
		notifier:       notifier,
		queueClient:    queueClient,
	}
}

// CreatePickupInput 客户提交取件请求的输入
type CreatePickupInput struct {
	FullName            string        `json:"full_name"`
	Email               string        `json:"email"`
	PhoneNumber         string        `json:"phone_number"`
	Address             string        `json:"address"`
	City                string        `json:"city"`
	State               string        `json:"state"`
	Pincode             string        `json:"pincode"`
	ParcelDescription   string        `json:"parcel_description"`
	ParcelWeight        string        `json:"parcel_weight"`
	EstimatedPrice      *models.Money `json:"estimated_price"`
	PreferredPickupDate string        `json:"preferred_pickup_date"`
	PreferredPickupTime string        `json:"preferred_pickup_time"`
}

// Create 创建取件请求，初始状态固定为 pending。
func (s *PickupService) Create(input CreatePickupInput) (*models.PickupRequest, error) {
	if err := validateCreateInput(&input); err != nil {
		return nil, err
	}

	now := time.Now()
	request := &models.PickupRequest{
		FullName:            strings.TrimSpace(input.FullName),
		Email:               strings.ToLower(strings.TrimSpace(input.Email)),
		PhoneNumber:         strings.TrimSpace(input.PhoneNumber),
		Address:             strings.TrimSpace(input.Address),
		City:                strings.TrimSpace(input.City),
		State:               strings.TrimSpace(input.State),
		Pincode:             strings.TrimSpace(input.Pincode),
		ParcelDescription:   strings.TrimSpace(input.ParcelDescription),
		ParcelWeight:        strings.TrimSpace(input.ParcelWeight),
		EstimatedPrice:      input.EstimatedPrice,
		PreferredPickupDate: strings.TrimSpace(input.PreferredPickupDate),
		PreferredPickupTime: strings.TrimSpace(input.PreferredPickupTime),
		Status:              constants.PickupStatusPending,
		RequestedAt:         now,
		UpdatedAt:           now,
	}
	if err := s.pickupRepo.Create(request); err != nil {
		logger.Errorw("pickup_create_failed", "email", request.Email, "error", err)
		return nil, ErrPickupUpdateFailed
	}
	logger.Infow("pickup_created", "pickup_request_id", request.ID, "city", request.City)
	return request, nil
}

func validateCreateInput(input *CreatePickupInput) error {
	required := []struct {
		name  string
		value string
	}{
		{"full_name", input.FullName},
		{"email", input.Email},
		{"phone_number", input.PhoneNumber},
		{"address", input.Address},
		{"city", input.City},
		{"state", input.State},
		{"pincode", input.Pincode},
		{"parcel_description", input.ParcelDescription},
		{"parcel_weight", input.ParcelWeight},
		{"preferred_pickup_date", input.PreferredPickupDate},
		{"preferred_pickup_time", input.PreferredPickupTime},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s 不能为空", ErrPickupValidation, field.name)
		}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		return fmt.Errorf("%w: 邮箱格式无效", ErrPickupValidation)
	}
	if !phonePattern.MatchString(strings.TrimSpace(input.PhoneNumber)) {
		return fmt.Errorf("%w: 手机号须为 6-9 开头的 10 位数字", ErrPickupValidation)
	}
	if !pincodePattern.MatchString(strings.TrimSpace(input.Pincode)) {
		return fmt.Errorf("%w: 邮编须为 6 位数字", ErrPickupValidation)
	}
	pickupDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(input.PreferredPickupDate), time.Local)
	if err != nil {
		return fmt.Errorf("%w: 期望取件日期格式须为 YYYY-MM-DD", ErrPickupValidation)
	}
	today := time.Now()
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	if pickupDate.Before(todayDate) {
		return fmt.Errorf("%w: 期望取件日期不能早于今天", ErrPickupValidation)
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(input.PreferredPickupTime)); err != nil {
		return fmt.Errorf("%w: 期望取件时间格式须为 HH:MM", ErrPickupValidation)
	}
	if input.EstimatedPrice != nil && input.EstimatedPrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: 申报价值不能为负数", ErrPickupValidation)
	}
	return nil
}

// GetAdmin 管理端查询取件请求详情
func (s *PickupService) GetAdmin(id uint) (*models.PickupRequest, error) {
	request, err := s.pickupRepo.GetByID(id)
	if err != nil {
		return nil, ErrPickupFetchFailed
	}
	if request == nil {
		return nil, ErrPickupNotFound
	}
	return request, nil
}

// GetForCustomer 客户侧查询详情：ID 与提交邮箱必须同时匹配，不匹配按不存在处理。
func (s *PickupService) GetForCustomer(id uint, email string) (*models.PickupRequest, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, ErrPickupNotFound
	}
	request, err := s.pickupRepo.GetByIDAndEmail(id, normalized)
	if err != nil {
		return nil, ErrPickupFetchFailed
	}
	if request == nil {
		return nil, ErrPickupNotFound
	}
	return request, nil
}

// History 按时间正序返回某个请求的状态流转记录
func (s *PickupService) History(id uint) ([]models.RequestStatusHistory, error) {
	request, err := s.pickupRepo.GetByID(id)
	if err != nil {
		return nil, ErrPickupFetchFailed
	}
	if request == nil {
		return nil, ErrPickupNotFound
	}
	entries, err := s.historyRepo.ListByRequest(id)
	if err != nil {
		return nil, ErrPickupFetchFailed
	}
	return entries, nil
}

// ListAdmin 管理端取件请求列表
func (s *PickupService) ListAdmin(filter repository.PickupListFilter) ([]models.PickupRequest, int64, error) {
	return s.pickupRepo.ListAdmin(filter)
}

// PickupStats 按状态汇总的请求数量
type PickupStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Accepted  int64 `json:"accepted"`
	Rejected  int64 `json:"rejected"`
	Completed int64 `json:"completed"`
}

// Stats 统计各状态请求数量
func (s *PickupService) Stats() (*PickupStats, error) {
	counts, err := s.pickupRepo.CountByStatus()
	if err != nil {
		return nil, ErrPickupFetchFailed
	}
	stats := &PickupStats{
		Pending:   counts[constants.PickupStatusPending],
		Accepted:  counts[constants.PickupStatusAccepted],
		Rejected:  counts[constants.PickupStatusRejected],
		Completed: counts[constants.PickupStatusCompleted],
	}
	stats.Total = stats.Pending + stats.Accepted + stats.Rejected + stats.Completed
	return stats, nil
}

// TransitionResult 状态流转结果。
// NotificationErr 只表示事后通知投递失败，状态变更本身已提交。
type TransitionResult struct {
	Request         *models.PickupRequest
	Invoice         *models.Invoice
	NotificationErr error
}

// ApplyTransition 应用一次状态流转。
// 状态更新、流转记录与发票（接受时）在同一事务内提交；通知在事务提交后尽力投递。
func (s *PickupService) ApplyTransition(id uint, target, actor, notes string) (*TransitionResult, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if !constants.IsValidPickupStatus(target) {
		return nil, ErrInvalidTransition
	}

	request, err := s.pickupRepo.GetByID(id)
	if err != nil {
		return nil, ErrPickupFetchFailed
	}
	if request == nil {
		return nil, ErrPickupNotFound
	}
	fromStatus := request.Status
	if !isTransitionAllowed(fromStatus, target) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"updated_at": now,
	}
	notes = strings.TrimSpace(notes)
	if notes != "" {
		updates["admin_notes"] = notes
	}
	setReviewedAt := fromStatus == constants.PickupStatusPending && request.ReviewedAt == nil
	if setReviewedAt {
		updates["reviewed_at"] = now
	}
	if target == constants.PickupStatusCompleted {
		updates["completed_at"] = now
	}

	var invoice *models.Invoice
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		pickupRepo := s.pickupRepo.WithTx(tx)
		historyRepo := s.historyRepo.WithTx(tx)

		rows, err := pickupRepo.UpdateStatusFrom(id, fromStatus, target, updates)
		if err != nil {
			return ErrPickupUpdateFailed
		}
		if rows == 0 {
			// 状态已被并发修改，视为非法流转
			return ErrInvalidTransition
		}

		entry := &models.RequestStatusHistory{
			PickupRequestID: id,
			FromStatus:      fromStatus,
			ToStatus:        target,
			Actor:           strings.TrimSpace(actor),
			Notes:           notes,
			CreatedAt:       now,
		}
		if err := historyRepo.Create(entry); err != nil {
			return ErrPickupUpdateFailed
		}

		if target == constants.PickupStatusAccepted && s.invoiceService != nil {
			generated, err := s.invoiceService.EnsureInvoice(tx, request)
			if err != nil && err != ErrDuplicateInvoice {
				return err
			}
			invoice = generated
		}
		return nil
	})
	if err != nil {
		if err == ErrInvalidTransition {
			return nil, ErrInvalidTransition
		}
		if err == ErrPickupUpdateFailed {
			return nil, ErrPickupUpdateFailed
		}
		logger.Errorw("pickup_transition_failed",
			"pickup_request_id", id,
			"from_status", fromStatus,
			"target_status", target,
			"error", err,
		)
		return nil, ErrPickupUpdateFailed
	}

	request.Status = target
	request.UpdatedAt = now
	if notes != "" {
		request.AdminNotes = notes
	}
	if setReviewedAt {
		request.ReviewedAt = &now
	}
	if target == constants.PickupStatusCompleted {
		request.CompletedAt = &now
	}
	if invoice != nil {
		request.Invoice = invoice
	}

	logger.Infow("pickup_transition_applied",
		"pickup_request_id", id,
		"from_status", fromStatus,
		"target_status", target,
		"actor", strings.TrimSpace(actor),
	)

	result := &TransitionResult{Request: request, Invoice: invoice}
	if target == constants.PickupStatusAccepted || target == constants.PickupStatusRejected {
		result.NotificationErr = s.dispatchDecisionNotification(request, invoice, target)
	}
	return result, nil
}

// dispatchDecisionNotification 事务提交后投递审核结果通知。
// 队列可用时转异步任务，否则同步发送；任何失败都不回滚状态变更。
func (s *PickupService) dispatchDecisionNotification(request *models.PickupRequest, invoice *models.Invoice, outcome string) error {
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueuePickupDecisionEmail(queue.PickupDecisionEmailPayload{
			PickupRequestID: request.ID,
			Outcome:         outcome,
		})
		if err != nil {
			logger.Warnw("pickup_enqueue_decision_email_failed",
				"pickup_request_id", request.ID,
				"outcome", outcome,
				"error", err,
			)
			return fmt.Errorf("%w: %w", ErrNotificationDelivery, err)
		}
		return nil
	}
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.NotifyDecision(request, invoice, outcome); err != nil {
		logger.Warnw("pickup_decision_email_send_failed",
			"pickup_request_id", request.ID,
			"outcome", outcome,
			"error", err,
		)
		return err
	}
	return nil
}

// BulkTransitionItem 批量流转中单个请求的结果
type BulkTransitionItem struct {
	PickupRequestID   uint   `json:"pickup_request_id"`
	Updated           bool   `json:"updated"`
	Error             string `json:"error,omitempty"`
	NotificationError string `json:"notification_error,omitempty"`
}

// BulkTransitionResult 批量流转结果汇总
type BulkTransitionResult struct {
	Items   []BulkTransitionItem `json:"items"`
	Updated int                  `json:"updated"`
	Failed  int                  `json:"failed"`
}

// ApplyBulkTransition 逐个应用状态流转，单个失败不影响其余请求。
func (s *PickupService) ApplyBulkTransition(ids []uint, target, actor, notes string) *BulkTransitionResult {
	result := &BulkTransitionResult{
		Items: make([]BulkTransitionItem, 0, len(ids)),
	}
	for _, id := range ids {
		item := BulkTransitionItem{PickupRequestID: id}
		transition, err := s.ApplyTransition(id, target, actor, notes)
		if err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			item.Updated = true
			result.Updated++
			if transition.NotificationErr != nil {
				item.NotificationError = transition.NotificationErr.Error()
			}
		}
		result.Items = append(result.Items, item)
	}
	return result
}

// ResendDecisionNotification 重发审核结果通知。
// 仅 accepted / rejected 状态可重发，同步投递并把失败直接返回给调用方。
func (s *PickupService) ResendDecisionNotification(id uint) error {
	request, err := s.pickupRepo.GetByID(id)
	if err != nil {
		return ErrPickupFetchFailed
	}
	if request == nil {
		return ErrPickupNotFound
	}
	if request.Status != constants.PickupStatusAccepted && request.Status != constants.PickupStatusRejected {
		return ErrInvalidTransition
	}
	if s.notifier == nil {
		return fmt.Errorf("%w: %w", ErrNotificationDelivery, ErrEmailServiceNotConfigured)
	}
	return s.notifier.NotifyDecision(request, request.Invoice, request.Status)
}
