package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vrl-pickup/internal/config"
	"github.com/vrl-pickup/internal/logger"
	"github.com/vrl-pickup/internal/models"
	"github.com/vrl-pickup/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	invoiceNoPrefix = "INV"

	// 重量附加费：每 500g（不足按 500g 计）收 20，上限 200；重量解析失败按 50。
	weightChargePerSlab  = 20
	weightSlabGrams      = 500
	weightChargeCap      = 200
	weightChargeFallback = 50
)

var weightPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// InvoiceService 发票生成服务
type InvoiceService struct {
	cfg         *config.InvoiceConfig
	invoiceRepo repository.InvoiceRepository
}

// NewInvoiceService 创建发票服务
func NewInvoiceService(cfg *config.InvoiceConfig, invoiceRepo repository.InvoiceRepository) *InvoiceService {
	return &InvoiceService{
		cfg:         cfg,
		invoiceRepo: invoiceRepo,
	}
}

// EnsureInvoice 幂等生成发票：已存在则直接复用，否则计费并创建。
// 在状态流转事务内调用时传入 tx，保证发票与状态变更同时提交。
func (s *InvoiceService) EnsureInvoice(tx *gorm.DB, request *models.PickupRequest) (*models.Invoice, error) {
	if request == nil {
		return nil, ErrPickupNotFound
	}
	var repo repository.InvoiceRepository = s.invoiceRepo
	if tx != nil {
		repo = s.invoiceRepo.WithTx(tx)
	}

	existing, err := repo.GetByRequestID(request.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	invoiceNo, err := s.nextInvoiceNo(repo, now)
	if err != nil {
		return nil, err
	}

	baseCharge := decimal.NewFromFloat(s.cfg.BaseCharge)
	weightCharge := calcWeightCharge(request.ParcelWeight)
	taxPercent := decimal.NewFromFloat(s.cfg.TaxPercent)
	subtotal := baseCharge.Add(weightCharge)
	taxAmount := subtotal.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(taxAmount)

	invoice := &models.Invoice{
		PickupRequestID: request.ID,
		InvoiceNo:       invoiceNo,
		BaseCharge:      models.NewMoneyFromDecimal(baseCharge),
		WeightCharge:    models.NewMoneyFromDecimal(weightCharge),
		TaxPercent:      models.NewMoneyFromDecimal(taxPercent),
		TaxAmount:       models.NewMoneyFromDecimal(taxAmount),
		TotalAmount:     models.NewMoneyFromDecimal(total),
		GeneratedAt:     now,
	}
	if err := repo.Create(invoice); err != nil {
		// pickup_request_id 唯一索引兜底：并发生成时复用先写入的那张
		dup, fetchErr := repo.GetByRequestID(request.ID)
		if fetchErr == nil && dup != nil {
			logger.Warnw("invoice_duplicate_reused",
				"pickup_request_id", request.ID,
				"invoice_no", dup.InvoiceNo,
			)
			return dup, ErrDuplicateInvoice
		}
		return nil, err
	}
	return invoice, nil
}

// nextInvoiceNo 生成当日发票编号 INV-YYYYMMDD-NNN
func (s *InvoiceService) nextInvoiceNo(repo repository.InvoiceRepository, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", invoiceNoPrefix, now.Format("20060102"))
	count, err := repo.CountByNoPrefix(prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

// calcWeightCharge 根据重量文本计算附加费。
// 支持 "2.5 kg" / "750 g" / "1.2" 等写法，未带单位按千克。
func calcWeightCharge(weightText string) decimal.Decimal {
	grams, ok := parseWeightGrams(weightText)
	if !ok || grams <= 0 {
		return decimal.NewFromInt(weightChargeFallback)
	}
	slabs := (grams + weightSlabGrams - 1) / weightSlabGrams
	charge := slabs * weightChargePerSlab
	if charge > weightChargeCap {
		charge = weightChargeCap
	}
	return decimal.NewFromInt(charge)
}

// parseWeightGrams 从自由文本中解析重量并折算为克
func parseWeightGrams(weightText string) (int64, bool) {
	text := strings.ToLower(strings.TrimSpace(weightText))
	if text == "" {
		return 0, false
	}
	match := weightPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	value, err := decimal.NewFromString(match)
	if err != nil {
		return 0, false
	}

	isGrams := false
	if idx := strings.Index(text, match); idx >= 0 {
		rest := strings.TrimSpace(text[idx+len(match):])
		if strings.HasPrefix(rest, "g") && !strings.HasPrefix(rest, "kg") {
			isGrams = true
		}
	}
	if !isGrams {
		value = value.Mul(decimal.NewFromInt(1000))
	}
	return value.Ceil().IntPart(), true
}
