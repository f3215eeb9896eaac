package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
)

type sqliteRoleRepo struct {
	db database.TxQuerier
}

func NewSQLiteRoleRepo(db database.TxQuerier) RoleRepository {
	return &sqliteRoleRepo{db: db}
}

func (r *sqliteRoleRepo) Create(ctx context.Context, role *models.Role) error {
	query := `
		INSERT INTO roles (id, server_id, name, permissions, color, position, is_everyone)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		role.ID, role.ServerID, role.Name, int64(role.Permissions),
		role.Color, role.Position, role.IsEveryone,
	).Scan(&role.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

func (r *sqliteRoleRepo) GetByID(ctx context.Context, id string) (*models.Role, error) {
	query := `
		SELECT id, server_id, name, permissions, color, position, is_everyone, created_at
		FROM roles WHERE id = ?`

	role := &models.Role{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&role.ID, &role.ServerID, &role.Name, &role.Permissions,
		&role.Color, &role.Position, &role.IsEveryone, &role.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role by id: %w", err)
	}

	return role, nil
}

func (r *sqliteRoleRepo) GetByServerID(ctx context.Context, serverID string) ([]models.Role, error) {
	// Yüksek position = yüksek rütbe; @everyone (position 0) en sonda.
	query := `
		SELECT id, server_id, name, permissions, color, position, is_everyone, created_at
		FROM roles WHERE server_id = ?
		ORDER BY position DESC, created_at`

	rows, err := r.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles by server: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(
			&role.ID, &role.ServerID, &role.Name, &role.Permissions,
			&role.Color, &role.Position, &role.IsEveryone, &role.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}

	return roles, nil
}

func (r *sqliteRoleRepo) GetEveryone(ctx context.Context, serverID string) (*models.Role, error) {
	query := `
		SELECT id, server_id, name, permissions, color, position, is_everyone, created_at
		FROM roles WHERE server_id = ? AND is_everyone = 1`

	role := &models.Role{}
	err := r.db.QueryRowContext(ctx, query, serverID).Scan(
		&role.ID, &role.ServerID, &role.Name, &role.Permissions,
		&role.Color, &role.Position, &role.IsEveryone, &role.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get everyone role: %w", err)
	}

	return role, nil
}

func (r *sqliteRoleRepo) Update(ctx context.Context, role *models.Role) error {
	query := `
		UPDATE roles SET name = ?, permissions = ?, color = ?, position = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		role.Name, int64(role.Permissions), role.Color, role.Position, role.ID)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
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

func (r *sqliteRoleRepo) Delete(ctx context.Context, id string) error {
	// member_roles satırları FK cascade ile temizlenir.
	result, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
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

func (r *sqliteRoleRepo) Assign(ctx context.Context, serverID, userID, roleID string) error {
	// INSERT OR IGNORE: tekrar atama hata değildir.
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO member_roles (server_id, user_id, role_id) VALUES (?, ?, ?)`,
		serverID, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

func (r *sqliteRoleRepo) Unassign(ctx context.Context, serverID, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM member_roles WHERE server_id = ? AND user_id = ? AND role_id = ?`,
		serverID, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to unassign role: %w", err)
	}
	return nil
}

func (r *sqliteRoleRepo) EffectivePermissions(ctx context.Context, serverID, userID string) (models.Permission, error) {
	// SQLite'ta bit-OR aggregate yoktur; maskeler Go tarafında OR'lanır.
	query := `
		SELECT permissions FROM roles
		WHERE server_id = ?
		  AND (is_everyone = 1
		       OR id IN (SELECT role_id FROM member_roles WHERE server_id = ? AND user_id = ?))`

	rows, err := r.db.QueryContext(ctx, query, serverID, serverID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get effective permissions: %w", err)
	}
	defer rows.Close()

	var combined models.Permission
	for rows.Next() {
		var mask int64
		if err := rows.Scan(&mask); err != nil {
			return 0, fmt.Errorf("failed to scan permission mask: %w", err)
		}
		combined |= models.Permission(mask)
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating permission rows: %w", err)
	}

	return combined, nil
}
