package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/media-service/internal/domain"
)

// UserRepository defines persistence access for identities, including the
// single refresh-token slot on each identity record.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByLogin matches a username or an email; a username match wins.
	GetByLogin(ctx context.Context, identifier string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// ListByIDs returns the identities that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// UpdateAccount returns ErrDuplicateKey when email belongs to another identity.
	UpdateAccount(ctx context.Context, id, fullName, email string) error
	UpdateImage(ctx context.Context, id string, kind domain.ImageKind, url string) error

	GetRefreshToken(ctx context.Context, id string) (*string, error)
	// SetRefreshToken overwrites the slot unconditionally; nil clears it.
	SetRefreshToken(ctx context.Context, id string, token *string) error
	// SwapRefreshToken replaces the slot with next only if it currently holds
	// expected. It reports whether the swap happened and returns
	// domain.ErrNotFound when the identity does not exist.
	SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, full_name, password_hash, avatar_url, cover_image_url, refresh_token, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, full_name, password_hash, avatar_url, cover_image_url)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.AvatarURL,
		user.CoverImageURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanOne(ctx, query, id)
}

func (r *userRepository) GetByLogin(ctx context.Context, identifier string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username=$1 OR email=$2 ORDER BY (username=$1) DESC LIMIT 1`
	return r.scanOne(ctx, query, strings.ToLower(identifier), identifier)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return r.scanOne(ctx, query, strings.ToLower(username))
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[])`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	return r.execOne(ctx, query, passwordHash, id)
}

func (r *userRepository) UpdateAccount(ctx context.Context, id, fullName, email string) error {
	const query = `UPDATE users SET full_name=$1, email=$2, updated_at=NOW() WHERE id=$3`
	err := r.execOne(ctx, query, fullName, email, id)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *userRepository) UpdateImage(ctx context.Context, id string, kind domain.ImageKind, url string) error {
	var query string
	switch kind {
	case domain.ImageKindAvatar:
		query = `UPDATE users SET avatar_url=$1, updated_at=NOW() WHERE id=$2`
	case domain.ImageKindCover:
		query = `UPDATE users SET cover_image_url=$1, updated_at=NOW() WHERE id=$2`
	default:
		return fmt.Errorf("unknown image kind %q", kind)
	}
	return r.execOne(ctx, query, url, id)
}

func (r *userRepository) GetRefreshToken(ctx context.Context, id string) (*string, error) {
	const query = `SELECT refresh_token FROM users WHERE id=$1`

	var token *string
	if err := r.db.QueryRow(ctx, query, id).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return token, nil
}

func (r *userRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	const query = `UPDATE users SET refresh_token=$1, updated_at=NOW() WHERE id=$2`
	return r.execOne(ctx, query, token, id)
}

// SwapRefreshToken relies on the row lock taken by UPDATE: a concurrent swap
// re-evaluates the WHERE clause after the first commits and matches no row.
func (r *userRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	const query = `
        UPDATE users SET refresh_token=$1, updated_at=NOW()
        WHERE id=$2 AND refresh_token=$3`

	cmd, err := r.db.Exec(ctx, query, next, id, expected)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (r *userRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return user, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.CoverImageURL,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
