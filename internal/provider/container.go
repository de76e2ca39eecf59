package provider

import (
	"github.com/vrl-pickup/internal/cache"
	"github.com/vrl-pickup/internal/config"
	"github.com/vrl-pickup/internal/logger"
	"github.com/vrl-pickup/internal/models"
	"github.com/vrl-pickup/internal/queue"
	"github.com/vrl-pickup/internal/repository"
	"github.com/vrl-pickup/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo   repository.AdminRepository
	PickupRepo  repository.PickupRequestRepository
	HistoryRepo repository.StatusHistoryRepository
	InvoiceRepo repository.InvoiceRepository

	// Services
	AuthService         *service.AuthService
	EmailService        *service.EmailService
	InvoiceService      *service.InvoiceService
	NotificationService *service.NotificationService
	PickupService       *service.PickupService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.PickupRepo = repository.NewPickupRequestRepository(db)
	c.HistoryRepo = repository.NewStatusHistoryRepository(db)
	c.InvoiceRepo = repository.NewInvoiceRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.InvoiceService = service.NewInvoiceService(&c.Config.Invoice, c.InvoiceRepo)
	c.NotificationService = service.NewNotificationService(&c.Config.Invoice, c.EmailService, c.InvoiceService)
	c.PickupService = service.NewPickupService(c.PickupRepo, c.HistoryRepo, c.InvoiceService, c.NotificationService, c.QueueClient)
}
