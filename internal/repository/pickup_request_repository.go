package repository

import (
	"errors"

	"github.com/vrl-pickup/internal/models"

	"gorm.io/gorm"
)

// PickupRequestRepository 取件请求数据访问接口
type PickupRequestRepository interface {
	Create(request *models.PickupRequest) error
	GetByID(id uint) (*models.PickupRequest, error)
	GetByIDAndEmail(id uint, email string) (*models.PickupRequest, error)
	ListAdmin(filter PickupListFilter) ([]models.PickupRequest, int64, error)
	CountByStatus() (map[string]int64, error)
	UpdateStatusFrom(id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error)
	WithTx(tx *gorm.DB) *GormPickupRequestRepository
}

// GormPickupRequestRepository GORM 实现
type GormPickupRequestRepository struct {
	db *gorm.DB
}

// NewPickupRequestRepository 创建取件请求仓库
func NewPickupRequestRepository(db *gorm.DB) *GormPickupRequestRepository {
	return &GormPickupRequestRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPickupRequestRepository) WithTx(tx *gorm.DB) *GormPickupRequestRepository {
	if tx == nil {
		return r
	}
	return &GormPickupRequestRepository{db: tx}
}

// Create 创建取件请求
func (r *GormPickupRequestRepository) Create(request *models.PickupRequest) error {
	return r.db.Create(request).Error
}

// GetByID 根据 ID 获取取件请求
func (r *GormPickupRequestRepository) GetByID(id uint) (*models.PickupRequest, error) {
	var request models.PickupRequest
	if err := r.db.Preload("Invoice").First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// GetByIDAndEmail 客户侧查询：必须同时匹配请求 ID 与提交时的邮箱
func (r *GormPickupRequestRepository) GetByIDAndEmail(id uint, email string) (*models.PickupRequest, error) {
	var request models.PickupRequest
	if err := r.db.Preload("Invoice").
		Where("id = ? AND email = ?", id, email).
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// ListAdmin 管理端取件请求列表
func (r *GormPickupRequestRepository) ListAdmin(filter PickupListFilter) ([]models.PickupRequest, int64, error) {
	var requests []models.PickupRequest
	query := r.db.Model(&models.PickupRequest{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.Email != "" {
		query = query.Where("email = ?", filter.Email)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("full_name LIKE ? OR phone_number LIKE ?", like, like)
	}
	if filter.RequestedFrom != nil {
		query = query.Where("requested_at >= ?", *filter.RequestedFrom)
	}
	if filter.RequestedTo != nil {
		query = query.Where("requested_at <= ?", *filter.RequestedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Preload("Invoice").Order("id desc").Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// CountByStatus 按状态统计请求数量
func (r *GormPickupRequestRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.Model(&models.PickupRequest{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// UpdateStatusFrom 条件更新状态：仅当当前状态仍等于 fromStatus 时生效。
// 返回受影响行数，0 表示状态已被并发修改或不匹配。
func (r *GormPickupRequestRepository) UpdateStatusFrom(id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	result := r.db.Model(&models.PickupRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
