package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/vrl-pickup/internal/constants"
	"github.com/vrl-pickup/internal/logger"
	"github.com/vrl-pickup/internal/provider"
	"github.com/vrl-pickup/internal/queue"
	"github.com/vrl-pickup/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPickupDecisionEmail, c.handlePickupDecisionEmail)
}

func (c *Consumer) handlePickupDecisionEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_decision_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PickupDecisionEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_decision_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.PickupRequestID == 0 {
		logger.Debugw("worker_decision_email_skip_invalid_payload", "pickup_request_id", payload.PickupRequestID)
		return nil
	}

	request, err := c.PickupRepo.GetByID(payload.PickupRequestID)
	if err != nil {
		logger.Warnw("worker_decision_email_fetch_failed", "pickup_request_id", payload.PickupRequestID, "error", err)
		return err
	}
	if request == nil {
		logger.Debugw("worker_decision_email_skip_not_found", "pickup_request_id", payload.PickupRequestID)
		return nil
	}

	outcome := strings.ToLower(strings.TrimSpace(payload.Outcome))
	if outcome == "" {
		outcome = request.Status
	}
	if outcome != constants.DecisionOutcomeAccepted && outcome != constants.DecisionOutcomeRejected {
		logger.Debugw("worker_decision_email_skip_outcome", "pickup_request_id", request.ID, "outcome", outcome)
		return nil
	}
	// 任务入队后状态可能又发生了流转，以当前状态为准
	if request.Status != outcome {
		logger.Debugw("worker_decision_email_skip_status_changed",
			"pickup_request_id", request.ID,
			"outcome", outcome,
			"current_status", request.Status,
		)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_decision_email_skip_notifier_nil", "pickup_request_id", request.ID)
		return nil
	}

	if err := c.NotificationService.NotifyDecision(request, request.Invoice, outcome); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailServiceDisabled):
			logger.Debugw("worker_decision_email_skip_disabled", "pickup_request_id", request.ID)
			return nil
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrEmailRecipientRejected):
			logger.Warnw("worker_decision_email_skip_bad_recipient",
				"pickup_request_id", request.ID,
				"receiver_email", request.Email,
				"error", err,
			)
			return nil
		default:
			logger.Warnw("worker_decision_email_send_failed",
				"pickup_request_id", request.ID,
				"receiver_email", request.Email,
				"outcome", outcome,
				"error", err,
			)
			return err
		}
	}
	return nil
}
