package settings

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists the settings map in an embedded SQLite database,
// one row per guild. Save rewrites every row in a single transaction,
// matching the store's whole-map write model.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dataDir string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "guild-settings.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS guild_settings (
		guild_id TEXT PRIMARY KEY,
		console_logs_channel_id TEXT DEFAULT '',
		log_channel_id TEXT DEFAULT '',
		alerts_channel_id TEXT DEFAULT '',
		prefix TEXT DEFAULT '',
		logging_enabled INTEGER DEFAULT 0,
		debug_mode INTEGER DEFAULT 0,
		forwarding_paused INTEGER DEFAULT 0,
		provisioned INTEGER DEFAULT 0
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load() (map[string]*GuildSettings, error) {
	rows, err := b.db.Query(`SELECT guild_id, console_logs_channel_id, log_channel_id,
		alerts_channel_id, prefix, logging_enabled, debug_mode, forwarding_paused, provisioned
		FROM guild_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query guild settings: %w", err)
	}
	defer rows.Close()

	guilds := make(map[string]*GuildSettings)
	for rows.Next() {
		var guildID string
		rec := &GuildSettings{}
		if err := rows.Scan(&guildID, &rec.RenderConsoleLogsChannelID, &rec.LogChannelID,
			&rec.AlertsChannelID, &rec.Prefix, &rec.LoggingEnabled, &rec.DebugMode,
			&rec.ForwardingPaused, &rec.Provisioned); err != nil {
			return nil, fmt.Errorf("failed to scan guild settings: %w", err)
		}
		guilds[guildID] = rec
	}
	return guilds, rows.Err()
}

func (b *SQLiteBackend) Save(guilds map[string]*GuildSettings) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM guild_settings`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO guild_settings (guild_id, console_logs_channel_id,
		log_channel_id, alerts_channel_id, prefix, logging_enabled, debug_mode,
		forwarding_paused, provisioned) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for guildID, rec := range guilds {
		if _, err := stmt.Exec(guildID, rec.RenderConsoleLogsChannelID, rec.LogChannelID,
			rec.AlertsChannelID, rec.Prefix, rec.LoggingEnabled, rec.DebugMode,
			rec.ForwardingPaused, rec.Provisioned); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
