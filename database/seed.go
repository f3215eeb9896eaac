package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/candemir/meydan/models"
)

// SeedDefaultServer creates the default community server with a text channel,
// a voice channel and an @everyone role. The server is unclaimed: owner_id is
// the zero UUID until the first registered user claims it.
//
// Herhangi bir server zaten varsa seed atlanır; bu fonksiyon idempotent'tir.
func SeedDefaultServer(ctx context.Context, db *sql.DB, name string) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM servers`).Scan(&count); err != nil {
		return fmt.Errorf("seed: counting servers: %w", err)
	}
	if count > 0 {
		return nil
	}

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO servers (id, name, owner_id, e2ee_enabled) VALUES (?, ?, ?, 0)`,
			models.DefaultServerID, name, models.SentinelOwnerID,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channels (id, server_id, name, channel_type, position) VALUES (?, ?, ?, ?, ?)`,
			uuid.Must(uuid.NewV7()).String(), models.DefaultServerID, "general", models.ChannelTypeText, 0,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channels (id, server_id, name, channel_type, position) VALUES (?, ?, ?, ?, ?)`,
			uuid.Must(uuid.NewV7()).String(), models.DefaultServerID, "Voice", models.ChannelTypeVoice, 1,
		); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO roles (id, server_id, name, permissions, position, is_everyone) VALUES (?, ?, ?, ?, 0, 1)`,
			uuid.Must(uuid.NewV7()).String(), models.DefaultServerID, models.EveryoneRoleName, int64(models.PermSendMessages),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("seed: default server: %w", err)
	}

	log.Printf("[database] seeded default server %s (%s)", name, models.DefaultServerID)
	return nil
}
