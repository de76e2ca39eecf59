package service

import (
	"fmt"
	"strings"

	"github.com/vrl-pickup/internal/config"
	"github.com/vrl-pickup/internal/constants"
	"github.com/vrl-pickup/internal/models"
)

// Mailer 通知服务依赖的邮件发送接口
type Mailer interface {
	SendTextEmail(toEmail, subject, body string) error
	SendEmailWithAttachment(toEmail, subject, body string, attachment *EmailAttachment) error
}

// NotificationService 审核结果通知服务
type NotificationService struct {
	cfg            *config.InvoiceConfig
	mailer         Mailer
	invoiceService *InvoiceService
}

// NewNotificationService 创建通知服务
func NewNotificationService(cfg *config.InvoiceConfig, mailer Mailer, invoiceService *InvoiceService) *NotificationService {
	return &NotificationService{
		cfg:            cfg,
		mailer:         mailer,
		invoiceService: invoiceService,
	}
}

// NotifyDecision 按审核结果给客户发送通知邮件。
// 接受时附带发票 PDF；拒绝时正文携带拒绝原因。失败以 ErrNotificationDelivery 包装返回。
func (s *NotificationService) NotifyDecision(request *models.PickupRequest, invoice *models.Invoice, outcome string) error {
	if request == nil {
		return ErrPickupNotFound
	}
	if s.mailer == nil {
		return fmt.Errorf("%w: %w", ErrNotificationDelivery, ErrEmailServiceNotConfigured)
	}

	switch outcome {
	case constants.DecisionOutcomeAccepted:
		return s.notifyAccepted(request, invoice)
	case constants.DecisionOutcomeRejected:
		return s.notifyRejected(request)
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrNotificationDelivery, outcome)
	}
}

func (s *NotificationService) notifyAccepted(request *models.PickupRequest, invoice *models.Invoice) error {
	subject := fmt.Sprintf("Pickup Request #%d Accepted", request.ID)
	var body strings.Builder
	body.WriteString(fmt.Sprintf("Dear %s,\n\n", request.FullName))
	body.WriteString(fmt.Sprintf("Your parcel pickup request #%d has been accepted.\n\n", request.ID))
	body.WriteString(fmt.Sprintf("Pickup is scheduled for %s at %s.\n", request.PreferredPickupDate, request.PreferredPickupTime))
	body.WriteString(fmt.Sprintf("Pickup address: %s, %s, %s - %s\n\n", request.Address, request.City, request.State, request.Pincode))
	if invoice != nil {
		currency := strings.TrimSpace(s.cfg.Currency)
		if currency == "" {
			currency = "INR"
		}
		body.WriteString(fmt.Sprintf("Invoice %s for %s %s is attached to this email.\n\n", invoice.InvoiceNo, currency, invoice.TotalAmount.String()))
	}
	body.WriteString(s.signature())

	var attachment *EmailAttachment
	if invoice != nil && s.invoiceService != nil {
		pdfBytes, filename, err := s.invoiceService.BuildInvoicePDF(request, invoice)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotificationDelivery, err)
		}
		attachment = &EmailAttachment{
			Filename:    filename,
			ContentType: "application/pdf",
			Data:        pdfBytes,
		}
	}

	var err error
	if attachment != nil {
		err = s.mailer.SendEmailWithAttachment(request.Email, subject, body.String(), attachment)
	} else {
		err = s.mailer.SendTextEmail(request.Email, subject, body.String())
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotificationDelivery, err)
	}
	return nil
}

func (s *NotificationService) notifyRejected(request *models.PickupRequest) error {
	subject := fmt.Sprintf("Pickup Request #%d Update", request.ID)
	var body strings.Builder
	body.WriteString(fmt.Sprintf("Dear %s,\n\n", request.FullName))
	body.WriteString(fmt.Sprintf("We are sorry to inform you that your parcel pickup request #%d could not be accepted.\n\n", request.ID))
	if reason := strings.TrimSpace(request.AdminNotes); reason != "" {
		body.WriteString(fmt.Sprintf("Reason: %s\n\n", reason))
	}
	body.WriteString("You are welcome to submit a new request at any time.\n\n")
	body.WriteString(s.signature())

	if err := s.mailer.SendTextEmail(request.Email, subject, body.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrNotificationDelivery, err)
	}
	return nil
}

func (s *NotificationService) signature() string {
	companyName := strings.TrimSpace(s.cfg.CompanyName)
	if companyName == "" {
		companyName = "VRL Logistics"
	}
	var sig strings.Builder
	sig.WriteString("Regards,\n")
	sig.WriteString(companyName)
	if supportEmail := strings.TrimSpace(s.cfg.SupportEmail); supportEmail != "" {
		sig.WriteString("\n")
		sig.WriteString(supportEmail)
	}
	return sig.String()
}
