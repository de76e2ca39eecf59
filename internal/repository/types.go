package repository

import "time"

// PickupListFilter 查询取件请求列表的过滤条件
type PickupListFilter struct {
	Page          int
	PageSize      int
	Status        string
	City          string
	Email         string
	Search        string
	RequestedFrom *time.Time
	RequestedTo   *time.Time
}
