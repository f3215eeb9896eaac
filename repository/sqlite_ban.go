package repository

import (
	"context"
	"fmt"

	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
)

type sqliteBanRepo struct {
	db database.TxQuerier
}

func NewSQLiteBanRepo(db database.TxQuerier) BanRepository {
	return &sqliteBanRepo{db: db}
}

func (r *sqliteBanRepo) Create(ctx context.Context, ban *models.Ban) error {
	query := `
		INSERT INTO bans (server_id, user_id, reason)
		VALUES (?, ?, ?)
		RETURNING banned_at`

	err := r.db.QueryRowContext(ctx, query,
		ban.ServerID, ban.UserID, ban.Reason,
	).Scan(&ban.BannedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user already banned", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create ban: %w", err)
	}

	return nil
}

func (r *sqliteBanRepo) Delete(ctx context.Context, serverID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bans WHERE server_id = ? AND user_id = ?`, serverID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ban: %w", err)
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

func (r *sqliteBanRepo) GetByServerID(ctx context.Context, serverID string) ([]models.Ban, error) {
	query := `
		SELECT server_id, user_id, reason, banned_at
		FROM bans WHERE server_id = ?
		ORDER BY banned_at DESC`

	rows, err := r.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bans by server: %w", err)
	}
	defer rows.Close()

	var bans []models.Ban
	for rows.Next() {
		var ban models.Ban
		if err := rows.Scan(&ban.ServerID, &ban.UserID, &ban.Reason, &ban.BannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ban row: %w", err)
		}
		bans = append(bans, ban)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ban rows: %w", err)
	}

	return bans, nil
}

func (r *sqliteBanRepo) IsBanned(ctx context.Context, serverID, userID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bans WHERE server_id = ? AND user_id = ?)`,
		serverID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ban: %w", err)
	}
	return exists == 1, nil
}
