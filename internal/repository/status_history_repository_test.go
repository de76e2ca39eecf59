package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/vrl-pickup/internal/constants"
	"github.com/vrl-pickup/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupHistoryRepositoryTest(t *testing.T) *GormStatusHistoryRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:history_repository_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.RequestStatusHistory{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewStatusHistoryRepository(db)
}

func TestListByRequestOrdersByTime(t *testing.T) {
	repo := setupHistoryRepositoryTest(t)
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.Local)

	// 乱序写入，读取时必须按时间正序
	entries := []models.RequestStatusHistory{
		{PickupRequestID: 1, FromStatus: constants.PickupStatusAccepted, ToStatus: constants.PickupStatusCompleted, Actor: "admin", CreatedAt: base.Add(2 * time.Hour)},
		{PickupRequestID: 1, FromStatus: constants.PickupStatusPending, ToStatus: constants.PickupStatusAccepted, Actor: "admin", CreatedAt: base},
		{PickupRequestID: 2, FromStatus: constants.PickupStatusPending, ToStatus: constants.PickupStatusRejected, Actor: "admin", CreatedAt: base.Add(time.Hour)},
	}
	for i := range entries {
		if err := repo.Create(&entries[i]); err != nil {
			t.Fatalf("create history entry failed: %v", err)
		}
	}

	got, err := repo.ListByRequest(1)
	if err != nil {
		t.Fatalf("list by request failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries want 2 got %d", len(got))
	}
	if got[0].ToStatus != constants.PickupStatusAccepted || got[1].ToStatus != constants.PickupStatusCompleted {
		t.Fatalf("entries should be time ordered: %+v", got)
	}

	empty, err := repo.ListByRequest(999)
	if err != nil {
		t.Fatalf("list for unknown request failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("unknown request should have empty ledger, got %d", len(empty))
	}
}
