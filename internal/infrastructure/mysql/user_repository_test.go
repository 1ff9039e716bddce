package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"auction-market/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func newTestUserRepo(t *testing.T) (*MySQLUserRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewMySQLUserRepository(db), mock, db
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.CreateUser(context.Background(), &domain.User{
		ID:        "user-1",
		Name:      "Ana",
		Email:     "ana@example.com",
		CreatedAt: time.Now(),
	})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_NotFound(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("user-missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUser(context.Background(), "user-missing")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_Success(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role",
		"avatar", "bio", "location", "website", "created_at"}).
		AddRow("user-1", "Ana", "ana@example.com", "hash", "user",
			"/uploads/avatar-1.png", "Coleccionista", "Madrid", "", now)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ana@example.com").
		WillReturnRows(rows)

	user, err := repo.GetUserByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, "Madrid", user.Profile.Location)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_NotFound(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM users WHERE id").
		WithArgs("user-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteUser(context.Background(), "user-missing")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
