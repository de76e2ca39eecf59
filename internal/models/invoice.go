package models

import "time"

// Invoice 发票表
// pickup_request_id 上有唯一索引，保证一个请求至多一张发票。
type Invoice struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	PickupRequestID uint      `gorm:"uniqueIndex;not null" json:"pickup_request_id"`
	InvoiceNo       string    `gorm:"uniqueIndex;not null" json:"invoice_no"`                  // 发票编号 INV-YYYYMMDD-NNN
	BaseCharge      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"base_charge"`  // 基础取件费
	WeightCharge    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"weight_charge"` // 重量附加费
	TaxPercent      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"tax_percent"`  // 税率
	TaxAmount       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`   // 税额
	TotalAmount     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 总额
	GeneratedAt     time.Time `gorm:"index" json:"generated_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Invoice) TableName() string {
	return "invoices"
}
