package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGSessionStoreRevokeSessionCAS(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGSessionStore(db)
	ctx := context.Background()

	// First redeemer flips the row.
	mock.ExpectExec("update auth_sessions set state").
		WithArgs("revoked", "jti-1", "active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	won, err := store.RevokeSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if !won {
		t.Fatal("first revocation must win")
	}

	// Second redeemer matches no active row.
	mock.ExpectExec("update auth_sessions set state").
		WithArgs("revoked", "jti-1", "active").
		WillReturnResult(sqlmock.NewResult(0, 0))
	won, err = store.RevokeSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if won {
		t.Fatal("second revocation must lose")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSessionStoreFindSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGSessionStore(db)
	ctx := context.Background()

	expiresAt := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select id, subject_id, state, expires_at, created_at").
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "state", "expires_at", "created_at"}).
			AddRow("jti-1", "user-1", "active", expiresAt, createdAt))

	sess, err := store.FindSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("FindSession: %v", err)
	}
	if sess.SubjectID != "user-1" || sess.State != SessionActive {
		t.Fatalf("unexpected session: %+v", sess)
	}

	mock.ExpectQuery("select id, subject_id, state, expires_at, created_at").
		WithArgs("jti-ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "state", "expires_at", "created_at"}))
	if _, err := store.FindSession(ctx, "jti-ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSessionStoreBlacklist(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGSessionStore(db)
	ctx := context.Background()

	expiresAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectExec("insert into auth_access_blacklist").
		WithArgs("jti-1", expiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.BlacklistAccess(ctx, "jti-1", expiresAt); err != nil {
		t.Fatalf("BlacklistAccess: %v", err)
	}

	mock.ExpectQuery("select exists").
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	blacklisted, err := store.AccessBlacklisted(ctx, "jti-1")
	if err != nil {
		t.Fatalf("AccessBlacklisted: %v", err)
	}
	if !blacklisted {
		t.Fatal("expected token to be blacklisted")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSessionStoreRevokeSubjectSessions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGSessionStore(db)

	mock.ExpectExec("update auth_sessions set state").
		WithArgs("revoked", "user-1", "active").
		WillReturnResult(sqlmock.NewResult(0, 3))
	if err := store.RevokeSubjectSessions(context.Background(), "user-1"); err != nil {
		t.Fatalf("RevokeSubjectSessions: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSessionStoreCleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGSessionStore(db)

	mock.ExpectExec("delete from auth_sessions").
		WithArgs(100).
		WillReturnResult(sqlmock.NewResult(0, 42))
	mock.ExpectExec("delete from auth_access_blacklist").
		WithArgs(100).
		WillReturnResult(sqlmock.NewResult(0, 7))

	result, err := store.Cleanup(context.Background(), 100)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if result.DeletedSessions != 42 || result.DeletedBlacklistEntries != 7 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
