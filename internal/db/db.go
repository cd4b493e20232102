package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string, logger *zap.SugaredLogger) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database migrations applied")
	return database, nil
}

func runMigrations(database *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            sender_id INT NOT NULL,
            receiver_id INT NOT NULL,
            text TEXT NOT NULL DEFAULT '',
            message_type VARCHAR(16) NOT NULL DEFAULT 'text',
            file_url TEXT,
            file_name TEXT,
            file_size BIGINT,
            file_mime TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
            ON messages (sender_id, receiver_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_rev
            ON messages (receiver_id, sender_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS groups (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            profile_pic TEXT NOT NULL DEFAULT '',
            admin_id INT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS group_members (
            group_id INT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            role VARCHAR(8) NOT NULL DEFAULT 'member',
            PRIMARY KEY (group_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS group_messages (
            id SERIAL PRIMARY KEY,
            group_id INT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            text TEXT NOT NULL DEFAULT '',
            message_type VARCHAR(16) NOT NULL DEFAULT 'text',
            file_url TEXT,
            file_name TEXT,
            file_size BIGINT,
            file_mime TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_group_messages_group
            ON group_messages (group_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS message_reactions (
            id SERIAL PRIMARY KEY,
            message_id INT REFERENCES messages(id) ON DELETE CASCADE,
            group_message_id INT REFERENCES group_messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            emoji VARCHAR(10) NOT NULL,
            message_type VARCHAR(8) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (message_id IS NOT NULL OR group_message_id IS NOT NULL)
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_reactions_private_unique
            ON message_reactions (message_id, user_id, emoji)
            WHERE message_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_reactions_group_unique
            ON message_reactions (group_message_id, user_id, emoji)
            WHERE group_message_id IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS group_message_reads (
            message_id INT NOT NULL REFERENCES group_messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            read_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (message_id, user_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
