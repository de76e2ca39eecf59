package repository

import (
	"errors"

	"github.com/vrl-pickup/internal/models"

	"gorm.io/gorm"
)

// InvoiceRepository 发票数据访问接口
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByRequestID(pickupRequestID uint) (*models.Invoice, error)
	CountByNoPrefix(prefix string) (int64, error)
	WithTx(tx *gorm.DB) *GormInvoiceRepository
}

// GormInvoiceRepository GORM 实现
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository 创建发票仓库
func NewInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInvoiceRepository) WithTx(tx *gorm.DB) *GormInvoiceRepository {
	if tx == nil {
		return r
	}
	return &GormInvoiceRepository{db: tx}
}

// Create 创建发票
func (r *GormInvoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

// GetByRequestID 根据取件请求 ID 获取发票
func (r *GormInvoiceRepository) GetByRequestID(pickupRequestID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.Where("pickup_request_id = ?", pickupRequestID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// CountByNoPrefix 统计指定前缀（如 INV-20260823-）的发票数量，用于生成当日序号
func (r *GormInvoiceRepository) CountByNoPrefix(prefix string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Invoice{}).
		Where("invoice_no LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
