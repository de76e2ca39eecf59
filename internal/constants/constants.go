package constants

// 取件请求状态常量
const (
	PickupStatusPending   = "pending"
	PickupStatusAccepted  = "accepted"
	PickupStatusRejected  = "rejected"
	PickupStatusCompleted = "completed"
)

// PickupStatuses 所有合法状态集合
var PickupStatuses = []string{
	PickupStatusPending,
	PickupStatusAccepted,
	PickupStatusRejected,
	PickupStatusCompleted,
}

// 审核结果常量（通知模板选择依据）
const (
	DecisionOutcomeAccepted = "accepted"
	DecisionOutcomeRejected = "rejected"
)

// 队列与任务名称常量
const (
	QueueDefault            = "default"
	TaskPickupDecisionEmail = "pickup:decision_email"
)

// IsValidPickupStatus 判断状态取值是否合法
func IsValidPickupStatus(status string) bool {
	for _, s := range PickupStatuses {
		if s == status {
			return true
		}
	}
	return false
}
