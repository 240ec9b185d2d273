package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestIncrementCreditsUsed_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	mock.ExpectQuery("UPDATE tenants SET credits_used = credits_used").
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"credits_used"}).AddRow(5))

	used, err := repo.IncrementCreditsUsed(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if used != 5 {
		t.Errorf("Expected credits_used 5 but got %d", used)
	}
	assertExpectations(t, mock)
}

func TestIncrementCreditsUsed_LimitReached(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	mock.ExpectQuery("UPDATE tenants SET credits_used = credits_used").
		WithArgs(1, 2).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.IncrementCreditsUsed(context.Background(), 1, 2)
	if err != ErrLimitExceeded {
		t.Errorf("Expected ErrLimitExceeded but got %v", err)
	}
	assertExpectations(t, mock)
}

func TestIncrementCreditsUsed_UnknownTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	mock.ExpectQuery("UPDATE tenants SET credits_used = credits_used").
		WithArgs(99, 1).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.IncrementCreditsUsed(context.Background(), 99, 1)
	if err != ErrNotFound {
		t.Errorf("Expected ErrNotFound but got %v", err)
	}
	assertExpectations(t, mock)
}

func TestGetTenantContext(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM tenants WHERE id").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "auto_reply_enabled", "follow_up_enabled", "persona", "ai_model", "ai_temperature",
		}).AddRow(3, "Acme Bakery", true, false, "friendly", "gpt-4o-mini", 0.4))

	tc, err := repo.GetContext(context.Background(), 3)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if tc.BusinessName != "Acme Bakery" || !tc.AutoReplyEnabled || tc.FollowUpEnabled {
		t.Errorf("Unexpected tenant context: %+v", tc)
	}
	if tc.Temperature == nil || *tc.Temperature != 0.4 {
		t.Errorf("Expected temperature 0.4 but got %v", tc.Temperature)
	}
	assertExpectations(t, mock)
}

func TestGetTenantContext_TemperatureUnsetOrZero(t *testing.T) {
	testCases := []struct {
		name  string
		value interface{}
		want  *float64
	}{
		{"unset", nil, nil},
		{"zero", 0.0, new(float64)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewTenantRepository(db)

			mock.ExpectQuery("SELECT (.+) FROM tenants WHERE id").
				WithArgs(3).
				WillReturnRows(sqlmock.NewRows([]string{
					"id", "name", "auto_reply_enabled", "follow_up_enabled", "persona", "ai_model", "ai_temperature",
				}).AddRow(3, "Acme Bakery", true, true, "", "", tc.value))

			got, err := repo.GetContext(context.Background(), 3)
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			switch {
			case tc.want == nil && got.Temperature != nil:
				t.Errorf("Expected no temperature but got %v", *got.Temperature)
			case tc.want != nil && (got.Temperature == nil || *got.Temperature != *tc.want):
				t.Errorf("Expected temperature %v but got %v", *tc.want, got.Temperature)
			}
			assertExpectations(t, mock)
		})
	}
}

func TestRollExpiredPeriods(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE tenants SET credits_used = 0").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	rolled, err := repo.RollExpiredPeriods(context.Background(), now)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if rolled != 2 {
		t.Errorf("Expected 2 rolled tenants but got %d", rolled)
	}
	assertExpectations(t, mock)
}
