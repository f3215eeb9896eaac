package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
)

// sqliteUserRepo, UserRepository interface'inin SQLite implementasyonu.
//
// database.TxQuerier alır — hem *sql.DB hem *sql.Tx bu interface'i sağlar,
// böylece aynı repo kodu transaction içinde de kullanılabilir.
type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo, constructor fonksiyonu.
// UserRepository interface'i döner (concrete struct değil) — Dependency Inversion.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, display_name, email, avatar_hash, identity_public_key, password_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at, last_seen`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		user.DisplayName,
		user.Email,
		user.AvatarHash,
		user.IdentityPublicKey,
		user.PasswordHash,
	).Scan(&user.CreatedAt, &user.LastSeen)

	if err != nil {
		// UNIQUE constraint violation → kullanıcı adı veya email zaten var
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users.email") {
				return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
			}
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, display_name, email, avatar_hash, identity_public_key, password_hash, created_at, last_seen
		FROM users WHERE id = ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "id")
}

func (r *sqliteUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	// username kolonu COLLATE NOCASE — "Ali" ve "ali" aynı kullanıcıdır.
	query := `
		SELECT id, username, display_name, email, avatar_hash, identity_public_key, password_hash, created_at, last_seen
		FROM users WHERE username = ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, username), "username")
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, username, display_name, email, avatar_hash, identity_public_key, password_hash, created_at, last_seen
		FROM users WHERE email = ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "email")
}

// scanOne, tek satırlık user sorgularının ortak Scan + hata eşleme kodu.
func (r *sqliteUserRepo) scanOne(row *sql.Row, by string) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.DisplayName, &user.Email,
		&user.AvatarHash, &user.IdentityPublicKey, &user.PasswordHash,
		&user.CreatedAt, &user.LastSeen,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", by, err)
	}

	return user, nil
}

func (r *sqliteUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET display_name = ?, identity_public_key = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, user.DisplayName, user.IdentityPublicKey, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	// RowsAffected: kaç satır etkilendi? 0 ise kullanıcı bulunamadı.
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqliteUserRepo) UpdateAvatar(ctx context.Context, userID, avatarHash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_hash = ? WHERE id = ?`, avatarHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqliteUserRepo) UpdatePassword(ctx context.Context, userID, newPasswordHash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, newPasswordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqliteUserRepo) UpdateLastSeen(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) UpsertFederated(ctx context.Context, id, username string) error {
	// display_name ilk görüşte username'e eşitlenir; kullanıcı hub'da
	// profilini güncellerse bir sonraki upsert'te yansır (username üzerinden).
	query := `
		INSERT INTO users (id, username, display_name, password_hash)
		VALUES (?, ?, ?, '')
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			last_seen = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, id, username, username); err != nil {
		return fmt.Errorf("failed to upsert federated user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// isUniqueViolation, SQLite UNIQUE constraint hatasını kontrol eder.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
