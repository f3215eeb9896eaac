package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/models"
)

type sqliteReactionRepo struct {
	db database.TxQuerier
}

func NewSQLiteReactionRepo(db database.TxQuerier) ReactionRepository {
	return &sqliteReactionRepo{db: db}
}

func (r *sqliteReactionRepo) Add(ctx context.Context, messageID int64, userID, emoji string) (bool, error) {
	// INSERT OR IGNORE + RowsAffected: 0 ise reaksiyon zaten vardı.
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reactions (message_id, user_id, emoji) VALUES (?, ?, ?)`,
		messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("failed to add reaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *sqliteReactionRepo) Remove(ctx context.Context, messageID int64, userID, emoji string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`,
		messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("failed to remove reaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *sqliteReactionRepo) GetGroupsByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]models.ReactionGroup, error) {
	if len(messageIDs) == 0 {
		return map[int64][]models.ReactionGroup{}, nil
	}

	// IN (?, ?, ...) — placeholder sayısı mesaj sayısına göre değişir.
	placeholders := strings.Repeat("?,", len(messageIDs))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT message_id, emoji, COUNT(*), GROUP_CONCAT(user_id)
		FROM reactions
		WHERE message_id IN (%s)
		GROUP BY message_id, emoji
		ORDER BY message_id, MIN(created_at)`, placeholders)

	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction groups: %w", err)
	}
	defer rows.Close()

	groups := make(map[int64][]models.ReactionGroup)
	for rows.Next() {
		var messageID int64
		var group models.ReactionGroup
		var userIDs string

		if err := rows.Scan(&messageID, &group.Emoji, &group.Count, &userIDs); err != nil {
			return nil, fmt.Errorf("failed to scan reaction group: %w", err)
		}

		group.UserIDs = strings.Split(userIDs, ",")
		groups[messageID] = append(groups[messageID], group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaction rows: %w", err)
	}

	return groups, nil
}
