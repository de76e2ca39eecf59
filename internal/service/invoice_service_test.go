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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupInvoiceServiceTest(t *testing.T) (*InvoiceService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:invoice_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PickupRequest{}, &models.Invoice{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.InvoiceConfig{
		BaseCharge:   100,
		TaxPercent:   18,
		Currency:     "INR",
		CompanyName:  "VRL Logistics",
		SupportEmail: "support@vrllogistics.com",
	}
	return NewInvoiceService(cfg, repository.NewInvoiceRepository(db)), db
}

func createInvoiceTestRequest(t *testing.T, db *gorm.DB, weight string) *models.PickupRequest {
	t.Helper()
	now := time.Now()
	request := &models.PickupRequest{
		FullName:            "Meena Iyer",
		Email:               "meena@example.com",
		PhoneNumber:         "9812345678",
		Address:             "4 Park Street",
		City:                "Chennai",
		State:               "Tamil Nadu",
		Pincode:             "600001",
		ParcelDescription:   "Clothes",
		ParcelWeight:        weight,
		PreferredPickupDate: now.AddDate(0, 0, 2).Format("2006-01-02"),
		PreferredPickupTime: "14:00",
		Status:              constants.PickupStatusPending,
		RequestedAt:         now,
		UpdatedAt:           now,
	}
	if err := db.Create(request).Error; err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	return request
}

func TestCalcWeightCharge(t *testing.T) {
	cases := []struct {
		name   string
		weight string
		want   int64
	}{
		{name: "two kilos", weight: "2 kg", want: 80},
		{name: "grams below one slab", weight: "450 g", want: 20},
		{name: "grams across slab boundary", weight: "750 g", want: 40},
		{name: "fraction of a kilo", weight: "0.4kg", want: 20},
		{name: "unitless treated as kilos", weight: "1.2", want: 60},
		{name: "grams spelled out", weight: "500 grams", want: 20},
		{name: "capped heavy parcel", weight: "10 kg", want: 200},
		{name: "unparseable falls back", weight: "fairly heavy", want: 50},
		{name: "empty falls back", weight: "", want: 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calcWeightCharge(tc.weight)
			if !got.Equal(decimal.NewFromInt(tc.want)) {
				t.Fatalf("weight %q charge want %d got %s", tc.weight, tc.want, got.String())
			}
		})
	}
}

func TestParseWeightGrams(t *testing.T) {
	cases := []struct {
		weight string
		want   int64
		ok     bool
	}{
		{weight: "2.5 kg", want: 2500, ok: true},
		{weight: "750g", want: 750, ok: true},
		{weight: "3", want: 3000, ok: true},
		{weight: "approx 1.5 kg", want: 1500, ok: true},
		{weight: "no digits here", want: 0, ok: false},
		{weight: "", want: 0, ok: false},
	}
	for _, tc := range cases {
		got, ok := parseWeightGrams(tc.weight)
		if ok != tc.ok {
			t.Fatalf("weight %q ok want %v got %v", tc.weight, tc.ok, ok)
		}
		if got != tc.want {
			t.Fatalf("weight %q grams want %d got %d", tc.weight, tc.want, got)
		}
	}
}

func TestEnsureInvoiceAmountsAndNumber(t *testing.T) {
	svc, db := setupInvoiceServiceTest(t)
	request := createInvoiceTestRequest(t, db, "2 kg")

	invoice, err := svc.EnsureInvoice(nil, request)
	if err != nil {
		t.Fatalf("ensure invoice failed: %v", err)
	}

	wantNo := fmt.Sprintf("INV-%s-001", time.Now().Format("20060102"))
	if invoice.InvoiceNo != wantNo {
		t.Fatalf("invoice no want %s got %s", wantNo, invoice.InvoiceNo)
	}
	if !invoice.BaseCharge.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("base charge want 100 got %s", invoice.BaseCharge.String())
	}
	if !invoice.WeightCharge.Decimal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("weight charge want 80 got %s", invoice.WeightCharge.String())
	}
	if !invoice.TaxAmount.Decimal.Equal(decimal.RequireFromString("32.4")) {
		t.Fatalf("tax amount want 32.4 got %s", invoice.TaxAmount.String())
	}
	if !invoice.TotalAmount.Decimal.Equal(decimal.RequireFromString("212.4")) {
		t.Fatalf("total want 212.4 got %s", invoice.TotalAmount.String())
	}
}

func TestEnsureInvoiceIdempotent(t *testing.T) {
	svc, db := setupInvoiceServiceTest(t)
	request := createInvoiceTestRequest(t, db, "1 kg")

	first, err := svc.EnsureInvoice(nil, request)
	if err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	second, err := svc.EnsureInvoice(nil, request)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if first.InvoiceNo != second.InvoiceNo || first.ID != second.ID {
		t.Fatalf("repeated ensure should reuse invoice: first=%s second=%s", first.InvoiceNo, second.InvoiceNo)
	}

	var count int64
	if err := db.Model(&models.Invoice{}).Count(&count).Error; err != nil {
		t.Fatalf("count invoices failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("invoice rows want 1 got %d", count)
	}
}

func TestEnsureInvoiceDailySequence(t *testing.T) {
	svc, db := setupInvoiceServiceTest(t)
	first := createInvoiceTestRequest(t, db, "1 kg")
	second := createInvoiceTestRequest(t, db, "3 kg")

	firstInvoice, err := svc.EnsureInvoice(nil, first)
	if err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	secondInvoice, err := svc.EnsureInvoice(nil, second)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}

	prefix := fmt.Sprintf("INV-%s-", time.Now().Format("20060102"))
	if firstInvoice.InvoiceNo != prefix+"001" {
		t.Fatalf("first invoice no want %s001 got %s", prefix, firstInvoice.InvoiceNo)
	}
	if secondInvoice.InvoiceNo != prefix+"002" {
		t.Fatalf("second invoice no want %s002 got %s", prefix, secondInvoice.InvoiceNo)
	}
}

func TestEnsureInvoiceNilRequest(t *testing.T) {
	svc, _ := setupInvoiceServiceTest(t)
	if _, err := svc.EnsureInvoice(nil, nil); !errors.Is(err, ErrPickupNotFound) {
		t.Fatalf("nil request should fail, got: %v", err)
	}
}

func TestBuildInvoicePDF(t *testing.T) {
	svc, db := setupInvoiceServiceTest(t)
	request := createInvoiceTestRequest(t, db, "2 kg")
	invoice, err := svc.EnsureInvoice(nil, request)
	if err != nil {
		t.Fatalf("ensure invoice failed: %v", err)
	}

	data, filename, err := svc.BuildInvoicePDF(request, invoice)
	if err != nil {
		t.Fatalf("build pdf failed: %v", err)
	}
	wantName := fmt.Sprintf("Invoice_Request_%d.pdf", request.ID)
	if filename != wantName {
		t.Fatalf("filename want %s got %s", wantName, filename)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		t.Fatalf("output should be a pdf document, got %d bytes", len(data))
	}
}
