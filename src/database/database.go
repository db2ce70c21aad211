package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/playerstatements/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS generation_batches (
		id TEXT PRIMARY KEY,
		quarter INTEGER NOT NULL,
		year INTEGER NOT NULL,
		generation_date TIMESTAMP NOT NULL,
		total_accounts INTEGER NOT NULL DEFAULT 0,
		start_date TEXT,
		end_date TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS batch_metadata (
		batch_id TEXT PRIMARY KEY,
		metadata TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(batch_id) REFERENCES generation_batches(id)
	);

	CREATE TABLE IF NOT EXISTS statement_players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		account_number TEXT NOT NULL,
		activity_statement TEXT,
		pre_commitment TEXT,
		cashless_statement TEXT,
		chunk_seq INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(batch_id) REFERENCES generation_batches(id)
	);
	CREATE INDEX IF NOT EXISTS idx_statement_players_batch ON statement_players(batch_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_statement_players_chunk
		ON statement_players(batch_id, chunk_seq, account_number)
		WHERE chunk_seq IS NOT NULL;

	CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_number TEXT NOT NULL UNIQUE,
		first_name TEXT,
		last_name TEXT,
		email TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS no_play_batches (
		id TEXT PRIMARY KEY,
		statement_period TEXT,
		statement_date TEXT,
		generation_date TIMESTAMP NOT NULL,
		total_players INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS no_play_players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		account_number TEXT NOT NULL,
		player_data TEXT,
		no_play_status TEXT,
		is_email BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(batch_id) REFERENCES no_play_batches(id)
	);
	CREATE INDEX IF NOT EXISTS idx_no_play_players_batch ON no_play_players(batch_id);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateStatementPlayersTable()

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateStatementPlayersTable adds columns introduced after the first
// deployments. Databases created before chunk sequence tracking lack the
// chunk_seq column.
func migrateStatementPlayersTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='statement_players'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'statement_players' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'statement_players' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(statement_players)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'statement_players'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'statement_players': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'statement_players'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'statement_players': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'statement_players'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'statement_players': %v", err)
		}
		return
	}

	if _, ok := columnExists["chunk_seq"]; !ok {
		_, err := DB.Exec("ALTER TABLE statement_players ADD COLUMN chunk_seq INTEGER")
		if err != nil {
			logger.L.Error("Error adding 'chunk_seq' column to 'statement_players' table", "error", err)
		} else {
			logger.L.Info("Added 'chunk_seq' column to 'statement_players' table")
		}
	}
}
