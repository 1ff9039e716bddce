package mysql

import (
	"context"
	"database/sql"
	"errors"

	"auction-market/internal/domain"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

type MySQLUserRepository struct {
	db *sql.DB
}

func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

func (r *MySQLUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
        INSERT INTO users (id, name, email, password_hash, role,
            avatar, bio, location, website, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.Profile.Avatar, user.Profile.Bio, user.Profile.Location,
		user.Profile.Website, user.CreatedAt)

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *MySQLUserRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return r.getUserBy(ctx, "id", userID)
}

func (r *MySQLUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUserBy(ctx, "email", email)
}

func (r *MySQLUserRepository) getUserBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := `
        SELECT id, name, email, password_hash, role,
            avatar, bio, location, website, created_at
        FROM users WHERE ` + column + ` = ?`

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.Profile.Avatar, &user.Profile.Bio, &user.Profile.Location,
		&user.Profile.Website, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *MySQLUserRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	query := `
        SELECT id, name, email, password_hash, role,
            avatar, bio, location, website, created_at
        FROM users ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var user domain.User
		err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
			&user.Role, &user.Profile.Avatar, &user.Profile.Bio,
			&user.Profile.Location, &user.Profile.Website, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

func (r *MySQLUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
        UPDATE users SET name = ?, email = ?, password_hash = ?,
            avatar = ?, bio = ?, location = ?, website = ?
        WHERE id = ?
    `
	res, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.PasswordHash,
		user.Profile.Avatar, user.Profile.Bio, user.Profile.Location,
		user.Profile.Website, user.ID)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return domain.ErrEmailTaken
		}
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// Either the row is gone or nothing changed; a read settles it.
		if _, getErr := r.GetUser(ctx, user.ID); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (r *MySQLUserRepository) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
