package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vrl-pickup/internal/config"
	"github.com/vrl-pickup/internal/constants"
	"github.com/vrl-pickup/internal/models"
)

type sentMail struct {
	to         string
	subject    string
	body       string
	attachment *EmailAttachment
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendTextEmail(toEmail, subject, body string) error {
	f.sent = append(f.sent, sentMail{to: toEmail, subject: subject, body: body})
	return f.err
}

func (f *fakeMailer) SendEmailWithAttachment(toEmail, subject, body string, attachment *EmailAttachment) error {
	f.sent = append(f.sent, sentMail{to: toEmail, subject: subject, body: body, attachment: attachment})
	return f.err
}

func setupNotificationTest() (*NotificationService, *fakeMailer) {
	cfg := &config.InvoiceConfig{
		BaseCharge:   100,
		TaxPercent:   18,
		Currency:     "INR",
		CompanyName:  "VRL Logistics",
		SupportEmail: "support@vrllogistics.com",
	}
	mailer := &fakeMailer{}
	invoiceService := NewInvoiceService(cfg, nil)
	return NewNotificationService(cfg, mailer, invoiceService), mailer
}

func notificationTestRequest() *models.PickupRequest {
	now := time.Now()
	return &models.PickupRequest{
		ID:                  7,
		FullName:            "Ravi Kumar",
		Email:               "ravi@example.com",
		PhoneNumber:         "9876543210",
		Address:             "12 MG Road",
		City:                "Bengaluru",
		State:               "Karnataka",
		Pincode:             "560001",
		ParcelDescription:   "Books",
		ParcelWeight:        "2 kg",
		PreferredPickupDate: "2026-08-25",
		PreferredPickupTime: "10:30",
		Status:              constants.PickupStatusAccepted,
		RequestedAt:         now,
	}
}

func notificationTestInvoice() *models.Invoice {
	return &models.Invoice{
		PickupRequestID: 7,
		InvoiceNo:       "INV-20260823-001",
		BaseCharge:      models.NewMoneyFromFloat(100),
		WeightCharge:    models.NewMoneyFromFloat(80),
		TaxPercent:      models.NewMoneyFromFloat(18),
		TaxAmount:       models.NewMoneyFromFloat(32.40),
		TotalAmount:     models.NewMoneyFromFloat(212.40),
		GeneratedAt:     time.Now(),
	}
}

func TestNotifyDecisionAcceptedAttachesInvoicePDF(t *testing.T) {
	svc, mailer := setupNotificationTest()
	request := notificationTestRequest()
	invoice := notificationTestInvoice()

	if err := svc.NotifyDecision(request, invoice, constants.DecisionOutcomeAccepted); err != nil {
		t.Fatalf("notify accepted failed: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent mails want 1 got %d", len(mailer.sent))
	}
	mail := mailer.sent[0]
	if mail.to != "ravi@example.com" {
		t.Fatalf("recipient want ravi@example.com got %s", mail.to)
	}
	if !strings.Contains(mail.subject, "Accepted") {
		t.Fatalf("subject should mention acceptance: %s", mail.subject)
	}
	if !strings.Contains(mail.body, "INV-20260823-001") {
		t.Fatalf("body should mention invoice number: %s", mail.body)
	}
	if !strings.Contains(mail.body, "2026-08-25") || !strings.Contains(mail.body, "10:30") {
		t.Fatalf("body should mention pickup schedule: %s", mail.body)
	}
	if mail.attachment == nil {
		t.Fatalf("accepted notification should carry attachment")
	}
	if mail.attachment.Filename != "Invoice_Request_7.pdf" {
		t.Fatalf("attachment name want Invoice_Request_7.pdf got %s", mail.attachment.Filename)
	}
	if mail.attachment.ContentType != "application/pdf" {
		t.Fatalf("attachment type want application/pdf got %s", mail.attachment.ContentType)
	}
	if len(mail.attachment.Data) < 4 || string(mail.attachment.Data[:4]) != "%PDF" {
		t.Fatalf("attachment should be a pdf document")
	}
}

func TestNotifyDecisionAcceptedWithoutInvoice(t *testing.T) {
	svc, mailer := setupNotificationTest()
	request := notificationTestRequest()

	if err := svc.NotifyDecision(request, nil, constants.DecisionOutcomeAccepted); err != nil {
		t.Fatalf("notify accepted failed: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent mails want 1 got %d", len(mailer.sent))
	}
	if mailer.sent[0].attachment != nil {
		t.Fatalf("no invoice means no attachment")
	}
}

func TestNotifyDecisionRejectedIncludesReason(t *testing.T) {
	svc, mailer := setupNotificationTest()
	request := notificationTestRequest()
	request.Status = constants.PickupStatusRejected
	request.AdminNotes = "Area not serviceable"

	if err := svc.NotifyDecision(request, nil, constants.DecisionOutcomeRejected); err != nil {
		t.Fatalf("notify rejected failed: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent mails want 1 got %d", len(mailer.sent))
	}
	mail := mailer.sent[0]
	if mail.attachment != nil {
		t.Fatalf("rejected notification should not carry attachment")
	}
	if !strings.Contains(mail.body, "Reason: Area not serviceable") {
		t.Fatalf("body should carry rejection reason: %s", mail.body)
	}
	if !strings.Contains(mail.body, "VRL Logistics") {
		t.Fatalf("body should carry company signature: %s", mail.body)
	}
}

func TestNotifyDecisionRejectedWithoutReason(t *testing.T) {
	svc, mailer := setupNotificationTest()
	request := notificationTestRequest()
	request.Status = constants.PickupStatusRejected
	request.AdminNotes = "   "

	if err := svc.NotifyDecision(request, nil, constants.DecisionOutcomeRejected); err != nil {
		t.Fatalf("notify rejected failed: %v", err)
	}
	if strings.Contains(mailer.sent[0].body, "Reason:") {
		t.Fatalf("blank notes should not render a reason line: %s", mailer.sent[0].body)
	}
}

func TestNotifyDecisionMailerFailureWrapped(t *testing.T) {
	svc, mailer := setupNotificationTest()
	mailer.err = errors.New("smtp timeout")

	err := svc.NotifyDecision(notificationTestRequest(), nil, constants.DecisionOutcomeAccepted)
	if !errors.Is(err, ErrNotificationDelivery) {
		t.Fatalf("mailer failure should wrap delivery error, got: %v", err)
	}
}

func TestNotifyDecisionUnknownOutcome(t *testing.T) {
	svc, mailer := setupNotificationTest()
	err := svc.NotifyDecision(notificationTestRequest(), nil, "completed")
	if !errors.Is(err, ErrNotificationDelivery) {
		t.Fatalf("unknown outcome should fail, got: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("unknown outcome should not send mail")
	}
}

func TestNotifyDecisionNilMailer(t *testing.T) {
	cfg := &config.InvoiceConfig{CompanyName: "VRL Logistics"}
	svc := NewNotificationService(cfg, nil, nil)
	err := svc.NotifyDecision(notificationTestRequest(), nil, constants.DecisionOutcomeAccepted)
	if !errors.Is(err, ErrNotificationDelivery) || !errors.Is(err, ErrEmailServiceNotConfigured) {
		t.Fatalf("nil mailer should report not configured, got: %v", err)
	}
}
