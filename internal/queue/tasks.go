package queue

import (
	"encoding/json"

	"github.com/vrl-pickup/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPickupDecisionEmail 审核结果邮件通知任务
	TaskPickupDecisionEmail = constants.TaskPickupDecisionEmail
)

// PickupDecisionEmailPayload 审核结果邮件任务载荷
type PickupDecisionEmailPayload struct {
	PickupRequestID uint   `json:"pickup_request_id"`
	Outcome         string `json:"outcome"`
}

// NewPickupDecisionEmailTask 创建审核结果邮件任务
func NewPickupDecisionEmailTask(payload PickupDecisionEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPickupDecisionEmail, body), nil
}
