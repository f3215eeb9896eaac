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

type sqliteChannelRepo struct {
	db database.TxQuerier
}

func NewSQLiteChannelRepo(db database.TxQuerier) ChannelRepository {
	return &sqliteChannelRepo{db: db}
}

func (r *sqliteChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	query := `
		INSERT INTO channels (id, server_id, name, channel_type, position, category_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		channel.ID,
		channel.ServerID,
		channel.Name,
		channel.Type,
		channel.Position,
		channel.CategoryID,
	).Scan(&channel.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	return nil
}

func (r *sqliteChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `
		SELECT id, server_id, name, channel_type, position, category_id, created_at
		FROM channels WHERE id = ?`

	channel := &models.Channel{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&channel.ID, &channel.ServerID, &channel.Name, &channel.Type,
		&channel.Position, &channel.CategoryID, &channel.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel by id: %w", err)
	}

	return channel, nil
}

func (r *sqliteChannelRepo) GetByServerID(ctx context.Context, serverID string) ([]models.Channel, error) {
	query := `
		SELECT id, server_id, name, channel_type, position, category_id, created_at
		FROM channels WHERE server_id = ?
		ORDER BY position, created_at`

	rows, err := r.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels by server: %w", err)
	}
	defer rows.Close()

	return scanChannels(rows)
}

func (r *sqliteChannelRepo) GetByUserID(ctx context.Context, userID string) ([]models.Channel, error) {
	// Üyelik üzerinden JOIN: kullanıcının üye olduğu server'ların tüm kanalları.
	query := `
		SELECT c.id, c.server_id, c.name, c.channel_type, c.position, c.category_id, c.created_at
		FROM channels c
		JOIN members m ON m.server_id = c.server_id
		WHERE m.user_id = ?
		ORDER BY c.server_id, c.position`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels by user: %w", err)
	}
	defer rows.Close()

	return scanChannels(rows)
}

func (r *sqliteChannelRepo) NextPosition(ctx context.Context, serverID string) (int, error) {
	var pos int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM channels WHERE server_id = ?`, serverID,
	).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to get next channel position: %w", err)
	}
	return pos, nil
}

func (r *sqliteChannelRepo) Delete(ctx context.Context, id string) error {
	// ON DELETE CASCADE: kanal silinince mesajları da DB tarafında silinir.
	result, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
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

func scanChannels(rows *sql.Rows) ([]models.Channel, error) {
	var channels []models.Channel
	for rows.Next() {
		var c models.Channel
		if err := rows.Scan(
			&c.ID, &c.ServerID, &c.Name, &c.Type, &c.Position, &c.CategoryID, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	return channels, nil
}
