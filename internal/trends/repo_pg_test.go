package trends

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	oa := Aggregate(nil, dec("2000"))
	oa.UserID = "user-1"
	oa.UpdatedAt = now

	mock.ExpectExec("INSERT INTO overall_analyses").
		WithArgs("user-1", "2000", []byte("[]"), []byte("[]"), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := &PGRepo{DB: db}
	if err := repo.Upsert(context.Background(), oa); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"user_id", "total_income", "spending_trends", "statement_ids", "updated_at"}).
		AddRow("user-1", "2000.00", []byte(`[{"month":"July 2024","category":"Food","spending":"250","percentageOfIncome":"12.5","savingsRate":"87.5"}]`), []byte(`["jul"]`), now)
	mock.ExpectQuery("SELECT (.+) FROM overall_analyses").WithArgs("user-1").WillReturnRows(rows)
	mock.ExpectQuery("SELECT (.+) FROM overall_analyses").WithArgs("user-2").WillReturnRows(
		sqlmock.NewRows([]string{"user_id", "total_income", "spending_trends", "statement_ids", "updated_at"}))

	repo := &PGRepo{DB: db}
	oa, err := repo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !oa.TotalIncome.Equal(dec("2000")) || len(oa.SpendingTrends) != 1 || oa.StatementIDs[0] != "jul" {
		t.Fatalf("unexpected overall analysis %+v", oa)
	}
	if _, err := repo.Get(context.Background(), "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
