package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vrl-pickup/internal/config"
	"github.com/vrl-pickup/internal/constants"
	"github.com/vrl-pickup/internal/models"
	"github.com/vrl-pickup/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeDecisionCall struct {
	requestID  uint
	outcome    string
	hasInvoice bool
}

type fakeDecisionNotifier struct {
	calls []fakeDecisionCall
	err   error
}

func (f *fakeDecisionNotifier) NotifyDecision(request *models.PickupRequest, invoice *models.Invoice, outcome string) error {
	f.calls = append(f.calls, fakeDecisionCall{
		requestID:  request.ID,
		outcome:    outcome,
		hasInvoice: invoice != nil,
	})
	return f.err
}

func setupPickupServiceTest(t *testing.T) (*PickupService, *fakeDecisionNotifier, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:pickup_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.PickupRequest{},
		&models.RequestStatusHistory{},
		&models.Invoice{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	invoiceCfg := &config.InvoiceConfig{
		BaseCharge:  100,
		TaxPercent:  18,
		Currency:    "INR",
		CompanyName: "VRL Logistics",
	}
	invoiceService := NewInvoiceService(invoiceCfg, repository.NewInvoiceRepository(db))
	notifier := &fakeDecisionNotifier{}
	svc := NewPickupService(
		repository.NewPickupRequestRepository(db),
		repository.NewStatusHistoryRepository(db),
		invoiceService,
		notifier,
		nil,
	)
	return svc, notifier, db
}

func validPickupInput() CreatePickupInput {
	return CreatePickupInput{
		FullName:            "Ravi Kumar",
		Email:               "Ravi.Kumar@example.com",
		PhoneNumber:         "9876543210",
		Address:             "12 MG Road",
		City:                "Bengaluru",
		State:               "Karnataka",
		Pincode:             "560001",
		ParcelDescription:   "Books and documents",
		ParcelWeight:        "2 kg",
		PreferredPickupDate: time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		PreferredPickupTime: "10:30",
	}
}

func createTestPickup(t *testing.T, svc *PickupService) *models.PickupRequest {
	t.Helper()
	request, err := svc.Create(validPickupInput())
	if err != nil {
		t.Fatalf("create pickup failed: %v", err)
	}
	return request
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows failed: %v", err)
	}
	return count
}

func TestPickupCreateNormalizesAndDefaultsPending(t *testing.T) {
	svc, _, _ := setupPickupServiceTest(t)
	request := createTestPickup(t, svc)

	if request.ID == 0 {
		t.Fatalf("expected persisted id")
	}
	if request.Status != constants.PickupStatusPending {
		t.Fatalf("status want pending got %s", request.Status)
	}
	if request.Email != "ravi.kumar@example.com" {
		t.Fatalf("email should be lowercased, got %s", request.Email)
	}
	if request.RequestedAt.IsZero() {
		t.Fatalf("requested_at should be set")
	}
	if request.ReviewedAt != nil || request.CompletedAt != nil {
		t.Fatalf("reviewed_at/completed_at should be empty on creation")
	}
}

func TestPickupCreateValidation(t *testing.T) {
	svc, _, _ := setupPickupServiceTest(t)

	cases := []struct {
		name   string
		mutate func(input *CreatePickupInput)
	}{
		{name: "missing full name", mutate: func(in *CreatePickupInput) { in.FullName = "  " }},
		{name: "bad email", mutate: func(in *CreatePickupInput) { in.Email = "not-an-email" }},
		{name: "short phone", mutate: func(in *CreatePickupInput) { in.PhoneNumber = "98765" }},
		{name: "phone wrong leading digit", mutate: func(in *CreatePickupInput) { in.PhoneNumber = "1234567890" }},
		{name: "bad pincode", mutate: func(in *CreatePickupInput) { in.Pincode = "56001" }},
		{name: "bad date format", mutate: func(in *CreatePickupInput) { in.PreferredPickupDate = "23-08-2026" }},
		{name: "past date", mutate: func(in *CreatePickupInput) {
			in.PreferredPickupDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
		}},
		{name: "bad time", mutate: func(in *CreatePickupInput) { in.PreferredPickupTime = "10:30 AM" }},
		{name: "negative estimated price", mutate: func(in *CreatePickupInput) {
			price := models.NewMoneyFromFloat(-10)
			in.EstimatedPrice = &price
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validPickupInput()
			tc.mutate(&input)
			if _, err := svc.Create(input); !errors.Is(err, ErrPickupValidation) {
				t.Fatalf("expected validation error, got: %v", err)
			}
		})
	}
}

func TestPickupTransitionAcceptGeneratesInvoiceAndLedger(t *testing.T) {
	svc, notifier, db := setupPickupServiceTest(t)
	request := createTestPickup(t, svc)

	result, err := svc.ApplyTransition(request.ID, constants.PickupStatusAccepted, "admin", "courier assigned")
	if err != nil {
		t.Fatalf("accept transition failed: %v", err)
	}
	if result.NotificationErr != nil {
		t.Fatalf("unexpected notification error: %v", result.NotificationErr)
	}
	if result.Invoice == nil {
		t.Fatalf("accept should generate invoice")
	}

	var got models.PickupRequest
	if err := db.First(&got, request.ID).Error; err != nil {
		t.Fatalf("reload request failed: %v", err)
	}
	if got.Status != constants.PickupStatusAccepted {
		t.Fatalf("status want accepted got %s", got.Status)
	}
	if got.ReviewedAt == nil {
		t.Fatalf("reviewed_at should be set on first decision")
	}
	if got.CompletedAt != nil {
		t.Fatalf("completed_at should stay empty after accept")
	}
	if got.AdminNotes != "courier assigned" {
		t.Fatalf("admin_notes want 'courier assigned' got %q", got.AdminNotes)
	}

	history, err := svc.History(request.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length want 1 got %d", len(history))
	}
	if history[0].FromStatus != constants.PickupStatusPending || history[0].ToStatus != constants.PickupStatusAccepted {
		t.Fatalf("unexpected history entry: %+v", history[0])
	}
	if history[0].Actor != "admin" {
		t.Fatalf("actor want admin got %s", history[0].Actor)
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("notifier calls want 1 got %d", len(notifier.calls))
	}
	if notifier.calls[0].outcome != constants.DecisionOutcomeAccepted || !notifier.calls[0].hasInvoice {
		t.Fatalf("unexpected notifier call: %+v", notifier.calls[0])
	}

	firstReviewedAt := *got.ReviewedAt

	// accepted -> completed 不再触发通知，也不改写 reviewed_at
	if _, err := svc.ApplyTransition(request.ID, constants.PickupStatusCompleted, "admin", ""); err != nil {
		t.Fatalf("complete transition failed: %v", err)
	}
	if err := db.First(&got, request.ID).Error; err != nil {
		t.Fatalf("reload request failed: %v", err)
	}
	if got.Status != constants.PickupStatusCompleted {
		t.Fatalf("status want completed got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatalf("completed_at should be set")
	}
	if got.ReviewedAt == nil || !got.ReviewedAt.Equal(firstReviewedAt) {
		t.Fatalf("reviewed_at should not change on completion")
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("completion should not notify, calls got %d", len(notifier.calls))
	}

	history, err = svc.History(request.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length want 2 got %d", len(history))
	}
	if history[1].FromStatus != constants.PickupStatusAccepted || history[1].ToStatus != constants.PickupStatusCompleted {
		t.Fatalf("unexpected second history entry: %+v", history[1])
	}
}

func TestPickupTransitionRejectedIsTerminal(t *testing.T) {
	svc, notifier, db := setupPickupServiceTest(t)
	request := createTestPickup(t, svc)

	result, err := svc.ApplyTransition(request.ID, constants.PickupStatusRejected, "admin", "area not serviceable")
	if err != nil {
		t.Fatalf("reject transition failed: %v", err)
	}
	if result.Invoice != nil {
		t.Fatalf("reject should not generate invoice")
	}
	if len(notifier.calls) != 1 || notifier.calls[0].outcome != constants.DecisionOutcomeRejected {
		t.Fatalf("unexpected notifier calls: %+v", notifier.calls)
	}
	if notifier.calls[0].hasInvoice {
		t.Fatalf("reject notification should not carry invoice")
	}

	for _, target := range []string{
		constants.PickupStatusAccepted,
		constants.PickupStatusCompleted,
		constants.PickupStatusPending,
	} {
		if _, err := svc.ApplyTransition(request.ID, target, "admin", ""); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("rejected -> %s should be invalid, got: %v", target, err)
		}
	}

	if got := countRows(t, db, &models.Invoice{}); got != 0 {
		t.Fatalf("invoice rows want 0 got %d", got)
	}
	if got := countRows(t, db, &models.RequestStatusHistory{}); got != 1 {
		t.Fatalf("history rows want 1 got %d", got)
	}
}

func TestPickupTransitionRepeatTargetRejected(t *testing.T) {
	svc, notifier, db := setupPickupServiceTest(t)
	request := createTestPickup(t, svc)

	if _, err := svc.ApplyTransition(request.ID, constants.PickupStatusAccepted, "admin", ""); err != nil {
		t.Fatalf("accept transition failed: %v", err)
	}
	if _, err := svc.ApplyTransition(request.ID, constants.PickupStatusAccepted, "admin", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("repeated accept should be invalid, got: %v", err)
	}

	if got := countRows(t, db, &models.Invoice{}); got != 1 {
		t.Fatalf("invoice rows want 1 got %d", got)
	}
	if got := countRows(t, db, &models.RequestStatusHistory{}); got != 1 {
		t.Fatalf("history rows want 1 got %d", got)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("notifier calls want 1 got %d", len(notifier.calls))
	}
}

func TestPickupTransitionUnknownTarget(t *testing.T) {
	svc, _, _ := setupPickupServiceTest(t)
	request := createTestPickup(t, svc)

	if _, err := svc.ApplyTransition(request.ID, "archived", "admin", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown target should be invalid, got: %v", err)
	}
	if _, err := svc.ApplyTransition(9999, constants.PickupStatusAccepted, "admin", ""); !errors.Is(err, ErrPickupNotFound) {
		t.Fatalf("missing request should be not found, got: %v", err)
	}
}

func TestPickupTransitionNotificationFailureNonFatal(t *testing.T) {
	svc, notifier, db := setupPickupServiceTest(t)
	request := createTestPickup(t, svc)
	notifier.err = errors.New("smtp connect refused")

	result, err := svc.ApplyTransition(request.ID, constants.PickupStatusAccepted, "admin", "")
	if err != nil {
		t.Fatalf("transition should not fail on notification error: %v", err)
	}
	if result.NotificationErr == nil {
		t.Fatalf("expected notification error in result")
	}

	var got models.PickupRequest
	if err := db.First(&got, request.ID).Error; err != nil {
		t.Fatalf("reload request failed: %v", err)
	}
	if got.Status != constants.PickupStatusAccepted {
		t.Fatalf("status change should persist despite notification failure, got %s", got.Status)
	}
	if countRows(t, db, &models.Invoice{}) != 1 {
		t.Fatalf("invoice should persist despite notification failure")
	}
}

func TestPickupGetForCustomerRequiresMatchingEmail(t *testing.T) {
	svc, _, _ := setupPickupServiceTest(t)
	request := createTestPickup(t, svc)

	got, err := svc.GetForCustomer(request.ID, "  RAVI.KUMAR@example.com ")
	if err != nil {
		t.Fatalf("get for customer failed: %v", err)
	}
	if got.ID != request.ID {
		t.Fatalf("id want %d got %d", request.ID, got.ID)
	}

	if _, err := svc.GetForCustomer(request.ID, "other@example.com"); !errors.Is(err, ErrPickupNotFound) {
		t.Fatalf("email mismatch should be not found, got: %v", err)
	}
	if _, err := svc.GetForCustomer(request.ID, ""); !errors.Is(err, ErrPickupNotFound) {
		t.Fatalf("empty email should be not found, got: %v", err)
	}
}

func TestPickupStats(t *testing.T) {
	svc, _, _ := setupPickupServiceTest(t)
	first := createTestPickup(t, svc)
	second := createTestPickup(t, svc)
	createTestPickup(t, svc)

	if _, err := svc.ApplyTransition(first.ID, constants.PickupStatusAccepted, "admin", ""); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := svc.ApplyTransition(second.ID, constants.PickupStatusRejected, "admin", "duplicate"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Accepted != 1 || stats.Rejected != 1 || stats.Completed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPickupApplyBulkTransition(t *testing.T) {
	svc, _, _ := setupPickupServiceTest(t)
	first := createTestPickup(t, svc)
	second := createTestPickup(t, svc)
	if _, err := svc.ApplyTransition(second.ID, constants.PickupStatusRejected, "admin", ""); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	result := svc.ApplyBulkTransition([]uint{first.ID, second.ID, 9999}, constants.PickupStatusAccepted, "admin", "")
	if result.Updated != 1 || result.Failed != 2 {
		t.Fatalf("bulk result want 1 updated / 2 failed got %d / %d", result.Updated, result.Failed)
	}
	if len(result.Items) != 3 {
		t.Fatalf("bulk items want 3 got %d", len(result.Items))
	}
	if !result.Items[0].Updated || result.Items[0].Error != "" {
		t.Fatalf("first item should succeed: %+v", result.Items[0])
	}
	if result.Items[1].Updated || result.Items[1].Error == "" {
		t.Fatalf("terminal request should fail in bulk: %+v", result.Items[1])
	}
	if result.Items[2].Updated || result.Items[2].Error == "" {
		t.Fatalf("missing request should fail in bulk: %+v", result.Items[2])
	}
}

func TestResendDecisionNotification(t *testing.T) {
	svc, notifier, _ := setupPickupServiceTest(t)
	request := createTestPickup(t, svc)

	if err := svc.ResendDecisionNotification(request.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resend on pending should be invalid, got: %v", err)
	}

	if _, err := svc.ApplyTransition(request.ID, constants.PickupStatusAccepted, "admin", ""); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if err := svc.ResendDecisionNotification(request.ID); err != nil {
		t.Fatalf("resend after accept failed: %v", err)
	}
	if len(notifier.calls) != 2 {
		t.Fatalf("notifier calls want 2 got %d", len(notifier.calls))
	}
	last := notifier.calls[len(notifier.calls)-1]
	if last.outcome != constants.DecisionOutcomeAccepted || !last.hasInvoice {
		t.Fatalf("resend should reuse stored invoice: %+v", last)
	}
}
