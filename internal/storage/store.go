package storage

import (
	"crypto/md5"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the processed-article ledger and the
// run history. It is the single source of truth for "has this item already
// produced output".
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "newsdigest.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Writes are serialized through a single connection so concurrent
	// idempotent inserts cannot corrupt the file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// HashURL derives the ledger primary key from an item URL.
func HashURL(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// --- Processed articles ---

// HasProcessed reports whether an item with the given URL has already been
// recorded. A read error is returned to the caller rather than swallowed; the
// caller decides whether to treat the item as unseen.
func (s *Store) HasProcessed(url string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM articles WHERE url_hash = ?", HashURL(url)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking processed state: %w", err)
	}
	return true, nil
}

// MarkProcessed records an article in the ledger. Inserting a URL hash that
// already exists is a no-op, never an error, so repeated marking of the same
// item is safe.
func (s *Store) MarkProcessed(a ProcessedArticle) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var analysis sql.NullString
	if a.AnalysisJSON != "" {
		analysis = sql.NullString{String: a.AnalysisJSON, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO articles (url_hash, url, title, source_name, matched_topic, analysis_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		HashURL(a.URL), a.URL, a.Title, a.SourceName, a.MatchedTopic, analysis,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("marking processed: %w", err)
	}
	return nil
}

// RecentHistory returns processed articles from the last windowDays days,
// newest first, capped at limit.
func (s *Store) RecentHistory(windowDays, limit int) ([]ProcessedArticle, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays).Format(time.RFC3339)

	rows, err := s.db.Query(`
		SELECT url_hash, url, title, source_name, matched_topic, COALESCE(analysis_json, ''), created_at
		FROM articles
		WHERE created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?`, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var results []ProcessedArticle
	for rows.Next() {
		var a ProcessedArticle
		var createdAt string
		if err := rows.Scan(&a.URLHash, &a.URL, &a.Title, &a.SourceName, &a.MatchedTopic, &a.AnalysisJSON, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	return results, rows.Err()
}

// CountProcessed returns the total number of ledger rows.
func (s *Store) CountProcessed() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

// --- Runs ---

// RecordRun stores the statistics of a completed pipeline pass.
func (s *Store) RecordRun(r Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, finished_at, source_count, total_fetched, new_count, matched_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
		r.SourceCount, r.TotalFetched, r.NewCount, r.MatchedCount,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, source_count, total_fetched, new_count, matched_count
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.SourceCount, &r.TotalFetched, &r.NewCount, &r.MatchedCount); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
