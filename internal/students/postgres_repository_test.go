package students

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func studentRows(id int64, registration, name string, active bool) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "registration", "name", "active"}).
		AddRow(id, registration, name, active)
}

func TestPostgresFindByChatID_ExactMatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("JOIN contacts").
		WithArgs("5511999999999").
		WillReturnRows(studentRows(7, "3029791", "Maria Silva", true))

	s, err := repo.FindByChatID(context.Background(), "5511999999999@s.whatsapp.net")
	if err != nil {
		t.Fatalf("FindByChatID() error = %v", err)
	}
	if s.ID != 7 || s.Registration != "3029791" {
		t.Errorf("student = %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresFindByChatID_FallsThroughToSuffix(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("JOIN contacts").
		WithArgs("5511999999999").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("JOIN contacts").
		WithArgs("11999999999").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("LIKE").
		WithArgs("199999999").
		WillReturnRows(studentRows(7, "3029791", "Maria Silva", true))

	s, err := repo.FindByChatID(context.Background(), "5511999999999")
	if err != nil {
		t.Fatalf("FindByChatID() error = %v", err)
	}
	if s.ID != 7 {
		t.Errorf("student ID = %d, want 7", s.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresFindByChatID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("JOIN contacts").WithArgs("5511999999999").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("JOIN contacts").WithArgs("11999999999").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("LIKE").WithArgs("199999999").WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FindByChatID(context.Background(), "5511999999999"); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("error = %v, want ErrStudentNotFound", err)
	}
}

func TestPostgresLinkContact_InsertsWhenUnlinked(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("WHERE s.registration").
		WithArgs("3029791").
		WillReturnRows(studentRows(7, "3029791", "Maria Silva", false))
	// Cross-link probe: nobody owns the phone yet.
	mock.ExpectQuery("JOIN contacts").WithArgs("5511999999999").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("JOIN contacts").WithArgs("11999999999").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("LIKE").WithArgs("199999999").WillReturnError(pgx.ErrNoRows)
	// No contact row for the student either.
	mock.ExpectQuery("FROM contacts WHERE student_id").
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(int64(7), "5511999999999").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s, err := repo.LinkContact(context.Background(), "3029791", "5511999999999@s.whatsapp.net")
	if err != nil {
		t.Fatalf("LinkContact() error = %v", err)
	}
	if s.ID != 7 {
		t.Errorf("student ID = %d, want 7", s.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresLinkContact_ConflictWithOtherStudent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("WHERE s.registration").
		WithArgs("2222222").
		WillReturnRows(studentRows(8, "2222222", "Bruno", false))
	// The phone resolves to student 7, not 8.
	mock.ExpectQuery("JOIN contacts").
		WithArgs("5511111111111").
		WillReturnRows(studentRows(7, "1111111", "Ana", true))

	if _, err := repo.LinkContact(context.Background(), "2222222", "5511111111111"); !errors.Is(err, ErrLinkConflict) {
		t.Errorf("error = %v, want ErrLinkConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresReplaceWeekdays(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectExec("DELETE FROM weekday_preferences").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO weekday_preferences").
		WithArgs(int64(7), 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO weekday_preferences").
		WithArgs(int64(7), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// Weekend codes are dropped before hitting the database.
	if err := repo.ReplaceWeekdays(context.Background(), 7, []int{1, 3, 6}); err != nil {
		t.Fatalf("ReplaceWeekdays() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresSetActive_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectExec("UPDATE students SET active").
		WithArgs(int64(42), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.SetActive(context.Background(), 42, true); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("error = %v, want ErrStudentNotFound", err)
	}
}
