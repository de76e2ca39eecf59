package models

import "time"

// RequestStatusHistory 状态流转审计日志
// 说明：只追加不修改，按 created_at 顺序可完整重放某个请求的状态路径。
type RequestStatusHistory struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	PickupRequestID uint      `gorm:"index;not null" json:"pickup_request_id"`
	FromStatus      string    `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus        string    `gorm:"type:varchar(20);not null" json:"to_status"`
	Actor           string    `gorm:"type:varchar(100);index;not null;default:''" json:"actor"`
	Notes           string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (RequestStatusHistory) TableName() string {
	return "request_status_histories"
}
