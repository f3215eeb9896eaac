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

type sqliteServerRepo struct {
	db database.TxQuerier
}

func NewSQLiteServerRepo(db database.TxQuerier) ServerRepository {
	return &sqliteServerRepo{db: db}
}

func (r *sqliteServerRepo) Create(ctx context.Context, server *models.Server) error {
	query := `
		INSERT INTO servers (id, name, icon_hash, owner_id, e2ee_enabled)
		VALUES (?, ?, ?, ?, ?)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		server.ID,
		server.Name,
		server.IconHash,
		server.OwnerID,
		server.E2EEEnabled,
	).Scan(&server.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return nil
}

func (r *sqliteServerRepo) GetByID(ctx context.Context, id string) (*models.Server, error) {
	query := `
		SELECT id, name, icon_hash, owner_id, e2ee_enabled, created_at
		FROM servers WHERE id = ?`

	server := &models.Server{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&server.ID, &server.Name, &server.IconHash, &server.OwnerID,
		&server.E2EEEnabled, &server.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server by id: %w", err)
	}

	return server, nil
}

func (r *sqliteServerRepo) GetAll(ctx context.Context) ([]models.Server, error) {
	query := `
		SELECT id, name, icon_hash, owner_id, e2ee_enabled, created_at
		FROM servers ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all servers: %w", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(
			&s.ID, &s.Name, &s.IconHash, &s.OwnerID, &s.E2EEEnabled, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan server row: %w", err)
		}
		servers = append(servers, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating server rows: %w", err)
	}

	return servers, nil
}

func (r *sqliteServerRepo) Update(ctx context.Context, server *models.Server) error {
	query := `UPDATE servers SET name = ?, icon_hash = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, server.Name, server.IconHash, server.ID)
	if err != nil {
		return fmt.Errorf("failed to update server: %w", err)
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

func (r *sqliteServerRepo) ClaimUnclaimed(ctx context.Context, newOwnerID string) ([]string, error) {
	// RETURNING ile devralınan server ID'leri tek sorguda toplanır —
	// caller her biri için ServerUpdate yayınlar.
	query := `UPDATE servers SET owner_id = ? WHERE owner_id = ? RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, newOwnerID, models.SentinelOwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim unclaimed servers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan claimed server id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed servers: %w", err)
	}

	return ids, nil
}

func (r *sqliteServerRepo) ClaimOwnership(ctx context.Context, serverID, newOwnerID string) (bool, error) {
	// Koşul WHERE'dedir: okunan duruma güvenmek yerine yalnızca hâlâ
	// sahipsiz olan satır tek UPDATE ile devralınır. Satır yoksa veya
	// sahiplik çoktan devredildiyse 0 satır etkilenir.
	query := `UPDATE servers SET owner_id = ? WHERE id = ? AND owner_id = ?`

	result, err := r.db.ExecContext(ctx, query, newOwnerID, serverID, models.SentinelOwnerID)
	if err != nil {
		return false, fmt.Errorf("failed to claim server ownership: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *sqliteServerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
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

func (r *sqliteServerRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM servers`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count servers: %w", err)
	}
	return count, nil
}
