package service

import "errors"

// 服务层哨兵错误，供 handler 映射为响应码。
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")
	ErrNotFound           = errors.New("记录不存在")

	ErrPickupNotFound     = errors.New("取件请求不存在")
	ErrPickupFetchFailed  = errors.New("取件请求查询失败")
	ErrPickupUpdateFailed = errors.New("取件请求更新失败")
	ErrPickupValidation   = errors.New("取件请求参数无效")

	// ErrInvalidTransition 当前状态不允许流转到目标状态（含重复应用同一目标状态）。
	ErrInvalidTransition = errors.New("状态流转不允许")

	// ErrDuplicateInvoice 发票已存在，调用方应复用已有发票而非报错给用户。
	ErrDuplicateInvoice = errors.New("发票已存在")

	// ErrNotificationDelivery 通知投递失败，状态流转本身已提交成功。
	ErrNotificationDelivery = errors.New("通知发送失败")

	ErrEmailServiceDisabled      = errors.New("邮件服务未启用")
	ErrEmailServiceNotConfigured = errors.New("邮件服务未配置")
	ErrInvalidEmail              = errors.New("邮箱地址无效")
	ErrEmailRecipientRejected    = errors.New("收件人地址被拒绝")
)
