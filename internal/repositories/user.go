package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arena/internal/cache"
	"arena/internal/models"

	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	CreateUser(ctx context.Context, username, email, passwordHash, role string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsernames(ctx context.Context, userIDs []int) (map[int]string, error)
	StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (int, error)
	RevokeToken(ctx context.Context, token string) error
}

type userRepository struct {
	db    *sqlx.DB
	cache cache.Cache
}

func NewUserRepository(db *sqlx.DB, cache cache.Cache) UserRepository {
	return &userRepository{db: db, cache: cache}
}

func (r *userRepository) CreateUser(ctx context.Context, username, email, passwordHash, role string) (*models.User, error) {
	query := `INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, username, email, passwordHash, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &models.User{
		ID:       int(id),
		Username: username,
		Email:    email,
		Role:     role,
	}, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, email, password_hash, role, created_at FROM users WHERE email = ?`
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetUsernames(ctx context.Context, userIDs []int) (map[int]string, error) {
	if len(userIDs) == 0 {
		return map[int]string{}, nil
	}

	query, args, err := sqlx.In(`SELECT id, username FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build usernames query: %w", err)
	}

	var rows []struct {
		ID       int    `db:"id"`
		Username string `db:"username"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get usernames: %w", err)
	}

	names := make(map[int]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Username
	}
	return names, nil
}

func (r *userRepository) StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error {
	key := fmt.Sprintf("refresh_token:%s", token)
	ttl := time.Until(expiresAt)

	if ttl <= 0 {
		return fmt.Errorf("token expiration is in the past")
	}

	if err := r.cache.Set(ctx, key, userID, ttl); err != nil {
		return fmt.Errorf("failed to store refresh token in cache: %w", err)
	}
	return nil
}

func (r *userRepository) GetRefreshToken(ctx context.Context, token string) (int, error) {
	key := fmt.Sprintf("refresh_token:%s", token)
	var userID int

	if err := r.cache.Get(ctx, key, &userID); err != nil {
		return 0, fmt.Errorf("refresh token not found in cache: %w", err)
	}
	return userID, nil
}

func (r *userRepository) RevokeToken(ctx context.Context, token string) error {
	key := fmt.Sprintf("refresh_token:%s", token)
	if err := r.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to revoke token from cache: %w", err)
	}
	return nil
}
