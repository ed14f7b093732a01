package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens a database connection and initializes the schema.
// Supported drivers: sqlite3 (dsn is a file path) and postgres.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		// Create the data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == "sqlite3" {
		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}

		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	// Create learners table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS learners (
			telegram_id INTEGER PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			delivery_time TEXT DEFAULT '07:00',
			utc_offset_min INTEGER DEFAULT 540,
			weekend_delivery BOOLEAN DEFAULT false,
			listening_per_day INTEGER DEFAULT 3,
			grammar_per_day INTEGER DEFAULT 5,
			tts_locale TEXT DEFAULT 'en',
			target_score INTEGER DEFAULT 800,
			is_active BOOLEAN DEFAULT true,
			tier INTEGER DEFAULT 3,
			accuracy REAL,
			current_streak INTEGER DEFAULT 0,
			longest_streak INTEGER DEFAULT 0,
			estimated_score INTEGER DEFAULT 600,
			last_delivery_date TEXT DEFAULT '',
			last_completed_date TEXT DEFAULT '',
			last_active TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create learners table: %v", err)
	}

	// Create questions table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			tier INTEGER NOT NULL DEFAULT 3,
			question_text TEXT NOT NULL,
			option_a TEXT NOT NULL,
			option_b TEXT NOT NULL,
			option_c TEXT NOT NULL,
			option_d TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			explanation TEXT DEFAULT '',
			audio_script TEXT DEFAULT '',
			audio_path TEXT DEFAULT '',
			passage TEXT DEFAULT '',
			document_type TEXT DEFAULT '',
			source TEXT DEFAULT 'ai',
			used_count INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create questions table: %v", err)
	}

	// Create responses table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS responses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			learner_id INTEGER NOT NULL,
			question_id INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			answer TEXT NOT NULL,
			is_correct BOOLEAN NOT NULL,
			scored BOOLEAN DEFAULT true,
			answered_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (learner_id) REFERENCES learners(telegram_id),
			FOREIGN KEY (question_id) REFERENCES questions(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create responses table: %v", err)
	}

	// Create progress table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			learner_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			attempted INTEGER DEFAULT 0,
			correct INTEGER DEFAULT 0,
			accuracy REAL DEFAULT 0,
			listening_accuracy REAL,
			grammar_accuracy REAL,
			reading_accuracy REAL,
			estimated_score INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (learner_id) REFERENCES learners(telegram_id),
			UNIQUE(learner_id, date)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create progress table: %v", err)
	}

	return nil
}
