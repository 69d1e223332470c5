package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jamen1147/socialApp/internal/domain"
)

// UserRepository provides Postgres-backed persistence for accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new account.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (username, display_name, email, image, password_hash, created_at)
        VALUES ($1,$2,$3,$4,$5,NOW())`

	_, err := r.pool.Exec(ctx, stmt,
		user.Username,
		user.DisplayName,
		user.Email,
		user.Image,
		user.PasswordHash,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrUsernameTaken
	}
	return err
}

// GetByUsername retrieves an account, or nil when absent.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT username, display_name, email, image, password_hash
        FROM users WHERE username=$1`

	row := r.pool.QueryRow(ctx, query, username)
	var user domain.User
	err := row.Scan(&user.Username, &user.DisplayName, &user.Email, &user.Image, &user.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves an account by email, or nil when absent.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT username, display_name, email, image, password_hash
        FROM users WHERE email=$1`

	row := r.pool.QueryRow(ctx, query, email)
	var user domain.User
	err := row.Scan(&user.Username, &user.DisplayName, &user.Email, &user.Image, &user.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
