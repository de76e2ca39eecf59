package models

import (
	"time"
)

// PickupRequest 取件请求表
// 状态只会是 pending / accepted / rejected / completed 四个值之一；
// reviewed_at 仅在首次离开 pending 时写入一次，completed_at 仅在完成时写入。
type PickupRequest struct {
	ID uint `gorm:"primarykey" json:"id"` // 主键

	// 客户信息
	FullName    string `gorm:"type:varchar(200);not null" json:"full_name"`        // 客户姓名
	Email       string `gorm:"index;not null" json:"email"`                        // 联系邮箱
	PhoneNumber string `gorm:"type:varchar(10);not null" json:"phone_number"`      // 10 位手机号
	Address     string `gorm:"type:text;not null" json:"address"`                  // 取件地址
	City        string `gorm:"type:varchar(100);index;not null" json:"city"`       // 城市
	State       string `gorm:"type:varchar(100);not null" json:"state"`            // 州/省
	Pincode     string `gorm:"type:varchar(6);not null" json:"pincode"`            // 邮编

	// 包裹信息
	ParcelDescription string `gorm:"type:text;not null" json:"parcel_description"`   // 物品描述
	ParcelWeight      string `gorm:"type:varchar(50);not null" json:"parcel_weight"` // 重量（自由文本，如 2.5 kg）
	EstimatedPrice    *Money `gorm:"type:decimal(20,2)" json:"estimated_price"`      // 申报价值（可选）

	// 取件排期
	PreferredPickupDate string `gorm:"type:varchar(10);not null" json:"preferred_pickup_date"` // 期望日期 YYYY-MM-DD
	PreferredPickupTime string `gorm:"type:varchar(5);not null" json:"preferred_pickup_time"`  // 期望时段 HH:MM

	// 审核状态
	Status     string `gorm:"index;not null;default:pending" json:"status"` // 当前状态
	AdminNotes string `gorm:"type:text" json:"admin_notes,omitempty"`       // 管理员备注

	// 时间戳
	RequestedAt time.Time  `gorm:"index" json:"requested_at"`   // 提交时间
	ReviewedAt  *time.Time `json:"reviewed_at"`                 // 首次审核时间
	CompletedAt *time.Time `json:"completed_at"`                // 完成时间
	UpdatedAt   time.Time  `json:"updated_at"`                  // 更新时间

	// 关联
	StatusHistory []RequestStatusHistory `gorm:"foreignKey:PickupRequestID" json:"status_history,omitempty"` // 状态流转审计
	Invoice       *Invoice               `gorm:"foreignKey:PickupRequestID" json:"invoice,omitempty"`        // 发票（最多一张）
}

// TableName 指定表名
func (PickupRequest) TableName() string {
	return "pickup_requests"
}
