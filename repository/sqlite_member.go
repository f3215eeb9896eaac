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

type sqliteMemberRepo struct {
	db database.TxQuerier
}

func NewSQLiteMemberRepo(db database.TxQuerier) MemberRepository {
	return &sqliteMemberRepo{db: db}
}

func (r *sqliteMemberRepo) Add(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO members (server_id, user_id, nickname)
		VALUES (?, ?, ?)
		RETURNING joined_at`

	err := r.db.QueryRowContext(ctx, query,
		member.ServerID, member.UserID, member.Nickname,
	).Scan(&member.JoinedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: already a member", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

func (r *sqliteMemberRepo) Remove(ctx context.Context, serverID, userID string) error {
	// member_roles satırları composite FK cascade ile DB tarafında silinir.
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM members WHERE server_id = ? AND user_id = ?`, serverID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
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

// memberSelect: üyelik + user bilgisi + GROUP_CONCAT ile rol ID'leri.
//
// LEFT JOIN users: community node'da user satırı henüz upsert edilmemiş
// olabilir. LEFT JOIN member_roles: rolü olmayan üye de listelenmeli.
const memberSelect = `
	SELECT m.server_id, m.user_id, m.nickname, m.joined_at,
	       u.id, u.username, u.display_name, u.avatar_hash,
	       GROUP_CONCAT(mr.role_id)
	FROM members m
	LEFT JOIN users u ON u.id = m.user_id
	LEFT JOIN member_roles mr ON mr.server_id = m.server_id AND mr.user_id = m.user_id`

func (r *sqliteMemberRepo) Get(ctx context.Context, serverID, userID string) (*models.Member, error) {
	query := memberSelect + `
	WHERE m.server_id = ? AND m.user_id = ?
	GROUP BY m.server_id, m.user_id`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, serverID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

func (r *sqliteMemberRepo) GetByServerID(ctx context.Context, serverID string) ([]models.Member, error) {
	query := memberSelect + `
	WHERE m.server_id = ?
	GROUP BY m.server_id, m.user_id
	ORDER BY m.joined_at`

	rows, err := r.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members by server: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, *member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}

func (r *sqliteMemberRepo) GetServerIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT server_id FROM members WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get server ids: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows, "server id")
}

func (r *sqliteMemberRepo) GetUserIDs(ctx context.Context, serverID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM members WHERE server_id = ?`, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member user ids: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows, "user id")
}

func (r *sqliteMemberRepo) IsMember(ctx context.Context, serverID, userID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE server_id = ? AND user_id = ?)`,
		serverID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists == 1, nil
}

func (r *sqliteMemberRepo) UpdateNickname(ctx context.Context, serverID, userID string, nickname *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE members SET nickname = ? WHERE server_id = ? AND user_id = ?`,
		nickname, serverID, userID)
	if err != nil {
		return fmt.Errorf("failed to update nickname: %w", err)
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

func scanMember(row rowScanner) (*models.Member, error) {
	member := &models.Member{}
	var user models.UserPublic
	var userID, username, displayName, roleIDs sql.NullString

	err := row.Scan(
		&member.ServerID, &member.UserID, &member.Nickname, &member.JoinedAt,
		&userID, &username, &displayName, &user.AvatarHash,
		&roleIDs,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		user.ID = userID.String
		user.Username = username.String
		user.DisplayName = displayName.String
		member.User = &user
	}
	if roleIDs.Valid && roleIDs.String != "" {
		member.RoleIDs = strings.Split(roleIDs.String, ",")
	}

	return member, nil
}

func scanStrings(rows *sql.Rows, what string) ([]string, error) {
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", what, err)
	}

	return values, nil
}
