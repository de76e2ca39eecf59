package repository

import (
	"github.com/vrl-pickup/internal/models"

	"gorm.io/gorm"
)

// StatusHistoryRepository 状态流转记录数据访问接口
type StatusHistoryRepository interface {
	Create(entry *models.RequestStatusHistory) error
	ListByRequest(pickupRequestID uint) ([]models.RequestStatusHistory, error)
	WithTx(tx *gorm.DB) *GormStatusHistoryRepository
}

// GormStatusHistoryRepository GORM 实现
type GormStatusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository 创建状态流转记录仓库
func NewStatusHistoryRepository(db *gorm.DB) *GormStatusHistoryRepository {
	return &GormStatusHistoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStatusHistoryRepository) WithTx(tx *gorm.DB) *GormStatusHistoryRepository {
	if tx == nil {
		return r
	}
	return &GormStatusHistoryRepository{db: tx}
}

// Create 追加一条流转记录（记录只增不改）
func (r *GormStatusHistoryRepository) Create(entry *models.RequestStatusHistory) error {
	return r.db.Create(entry).Error
}

// ListByRequest 按时间正序返回某个请求的全部流转记录
func (r *GormStatusHistoryRepository) ListByRequest(pickupRequestID uint) ([]models.RequestStatusHistory, error) {
	entries := make([]models.RequestStatusHistory, 0)
	if err := r.db.
		Where("pickup_request_id = ?", pickupRequestID).
		Order("created_at asc, id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
