package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// AskEvent is one request sent to one AI.
type AskEvent struct {
	ID          int64
	UID         string
	AIID        string
	Provider    string
	Model       string
	Streamed    bool
	Success     bool
	ErrorType   string // AIAPIError type when Success is false
	AnswerChars int
	Duration    time.Duration
	CreatedAt   time.Time
}

// AIStats aggregates the events of one AI instance.
type AIStats struct {
	AIID        string
	Provider    string
	Requests    int
	Failures    int
	TotalChars  int
	AvgDuration time.Duration
	LastUsed    time.Time
}

// StatsStorage records usage statistics in a SQLite database.
type StatsStorage struct {
	db *sql.DB
}

// NewStatsStorage opens (or creates) stats.db in dataDir.
func NewStatsStorage(dataDir string) (*StatsStorage, error) {
	dbPath := filepath.Join(dataDir, "stats.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	storage := &StatsStorage{db: db}

	if err := storage.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return storage, nil
}

// Timestamps are unix milliseconds and durations are milliseconds.
func (s *StatsStorage) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ask_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL,
		ai_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		streamed INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		answer_chars INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ask_events_ai ON ask_events(ai_id);
	CREATE INDEX IF NOT EXISTS idx_ask_events_created ON ask_events(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if err := s.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// migrateSchema adds columns introduced after the first release
func (s *StatsStorage) migrateSchema() error {
	hasErrorType, err := s.columnExists("ask_events", "error_type")
	if err != nil {
		return fmt.Errorf("failed to check for error_type column: %w", err)
	}

	if !hasErrorType {
		if _, err := s.db.Exec(`ALTER TABLE ask_events ADD COLUMN error_type TEXT DEFAULT ''`); err != nil {
			return fmt.Errorf("failed to add error_type column: %w", err)
		}
	}
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (s *StatsStorage) columnExists(tableName, columnName string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid          int
			name         string
			dataType     string
			notNull      int
			defaultValue interface{}
			pk           int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}

	return false, rows.Err()
}

// Record stores one event. A zero CreatedAt means now.
func (s *StatsStorage) Record(ev AskEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
	INSERT INTO ask_events (uid, ai_id, provider, model, streamed, success, error_type, answer_chars, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.UID,
		ev.AIID,
		ev.Provider,
		ev.Model,
		boolToInt(ev.Streamed),
		boolToInt(ev.Success),
		ev.ErrorType,
		ev.AnswerChars,
		ev.Duration.Milliseconds(),
		ev.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Summary aggregates events per AI, most used first.
func (s *StatsStorage) Summary() ([]AIStats, error) {
	rows, err := s.db.Query(`
	SELECT ai_id,
		MAX(provider),
		COUNT(*),
		SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
		SUM(answer_chars),
		AVG(duration_ms),
		MAX(created_at)
	FROM ask_events
	GROUP BY ai_id
	ORDER BY COUNT(*) DESC, ai_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AIStats
	for rows.Next() {
		var (
			st       AIStats
			avgMS    float64
			lastUsed int64
		)
		if err := rows.Scan(&st.AIID, &st.Provider, &st.Requests, &st.Failures, &st.TotalChars, &avgMS, &lastUsed); err != nil {
			return nil, err
		}
		st.AvgDuration = time.Duration(avgMS * float64(time.Millisecond))
		st.LastUsed = time.UnixMilli(lastUsed)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Recent returns the newest events, at most limit.
func (s *StatsStorage) Recent(limit int) ([]AskEvent, error) {
	rows, err := s.db.Query(`
	SELECT id, uid, ai_id, provider, model, streamed, success, error_type, answer_chars, duration_ms, created_at
	FROM ask_events
	ORDER BY created_at DESC, id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AskEvent
	for rows.Next() {
		var (
			ev                AskEvent
			streamed, success int
			errorType         sql.NullString
			durationMS, at    int64
		)
		if err := rows.Scan(&ev.ID, &ev.UID, &ev.AIID, &ev.Provider, &ev.Model, &streamed, &success, &errorType, &ev.AnswerChars, &durationMS, &at); err != nil {
			continue
		}
		ev.Streamed = streamed != 0
		ev.Success = success != 0
		ev.ErrorType = errorType.String
		ev.Duration = time.Duration(durationMS) * time.Millisecond
		ev.CreatedAt = time.UnixMilli(at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Clear deletes every event.
func (s *StatsStorage) Clear() error {
	_, err := s.db.Exec(`DELETE FROM ask_events`)
	return err
}

func (s *StatsStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
