package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
)

type sqliteMessageRepo struct {
	db database.TxQuerier
}

func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

func (r *sqliteMessageRepo) Create(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (id, channel_id, author_id, content, nonce, reply_to_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		message.ID,
		message.ChannelID,
		message.AuthorID,
		message.Content,
		message.Nonce,
		message.ReplyToID,
	).Scan(&message.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	// LEFT JOIN: community node'da yazar satırı henüz yazılmamış olabilir —
	// mesaj yine de dönmeli, author alanı boş kalır.
	query := `
		SELECT m.id, m.channel_id, m.author_id, m.content, m.nonce, m.reply_to_id,
		       m.is_deleted, m.edited_at, m.created_at,
		       u.id, u.username, u.display_name, u.avatar_hash
		FROM messages m
		LEFT JOIN users u ON m.author_id = u.id
		WHERE m.id = ?`

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}

	return msg, nil
}

func (r *sqliteMessageRepo) GetByChannelID(ctx context.Context, channelID string, beforeID int64, limit int) ([]models.Message, error) {
	// Snowflake ID zaman sıralı olduğu için cursor doğrudan ID'dir:
	// "id < beforeID" = "beforeID'den daha eski". created_at subquery gerekmez.
	var query string
	var args []any

	if beforeID <= 0 {
		query = `
			SELECT m.id, m.channel_id, m.author_id, m.content, m.nonce, m.reply_to_id,
			       m.is_deleted, m.edited_at, m.created_at,
			       u.id, u.username, u.display_name, u.avatar_hash
			FROM messages m
			LEFT JOIN users u ON m.author_id = u.id
			WHERE m.channel_id = ? AND m.is_deleted = 0
			ORDER BY m.id DESC
			LIMIT ?`
		args = []any{channelID, limit}
	} else {
		query = `
			SELECT m.id, m.channel_id, m.author_id, m.content, m.nonce, m.reply_to_id,
			       m.is_deleted, m.edited_at, m.created_at,
			       u.id, u.username, u.display_name, u.avatar_hash
			FROM messages m
			LEFT JOIN users u ON m.author_id = u.id
			WHERE m.channel_id = ? AND m.id < ? AND m.is_deleted = 0
			ORDER BY m.id DESC
			LIMIT ?`
		args = []any{channelID, beforeID, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages by channel: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

func (r *sqliteMessageRepo) UpdateContent(ctx context.Context, message *models.Message) error {
	now := time.Now().UTC()
	query := `UPDATE messages SET content = ?, edited_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, message.Content, now, message.ID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	message.EditedAt = &now
	return nil
}

func (r *sqliteMessageRepo) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_deleted = 1, content = '' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
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

// rowScanner, *sql.Row ve *sql.Rows'un ortak Scan imzası.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var author models.UserPublic
	var authorID, authorUsername, authorDisplayName sql.NullString

	err := row.Scan(
		&msg.ID, &msg.ChannelID, &msg.AuthorID, &msg.Content, &msg.Nonce, &msg.ReplyToID,
		&msg.IsDeleted, &msg.EditedAt, &msg.CreatedAt,
		&authorID, &authorUsername, &authorDisplayName, &author.AvatarHash,
	)
	if err != nil {
		return nil, err
	}

	if authorID.Valid {
		author.ID = authorID.String
		author.Username = authorUsername.String
		author.DisplayName = authorDisplayName.String
		msg.Author = &author
	}

	return msg, nil
}
