package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"casetrack/internal/domain/entity"
	"casetrack/internal/infra/adapter/persistence/postgres"
)

/* ──────────────────────────────── helpers ──────────────────────────────── */

func caseRow(c *entity.CaseInfo) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"case_id", "first_name", "last_name", "dob", "gender",
	}).AddRow(c.ID, c.FirstName, c.LastName, c.DOB, c.Gender)
}

/* ──────────────────────────────── 1. GetCaseInfo ──────────────────────────────── */

func TestCaseRepo_GetCaseInfo(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.CaseInfo{ID: 7, FirstName: "Ann", LastName: "Lee", DOB: "1990-03-01", Gender: "F"}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM cases`)).
		WithArgs(int64(7)).
		WillReturnRows(caseRow(want))

	repo := postgres.NewCaseRepo(db)
	got, err := repo.GetCaseInfo(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetCaseInfo err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCaseRepo_GetCaseInfo_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM cases`)).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"case_id", "first_name", "last_name", "dob", "gender"}))

	repo := postgres.NewCaseRepo(db)
	got, err := repo.GetCaseInfo(context.Background(), 404)
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if got != nil {
		t.Fatalf("want nil case, got %+v", got)
	}
}

func TestCaseRepo_GetCaseInfo_QueryError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM cases`)).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrConnDone)

	repo := postgres.NewCaseRepo(db)
	_, err := repo.GetCaseInfo(context.Background(), 1)
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("want ErrConnDone, got %v", err)
	}
	if errors.Is(err, entity.ErrNotFound) {
		t.Fatal("query failure must not be reported as not found")
	}
}
