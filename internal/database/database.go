package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"cadenza/pkg/models"
)

// Database is the SQLite play log. It is safe for concurrent use because
// the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn      *sql.DB
	logger    *logrus.Logger
	sessionID string

	insertPlayStmt  *sql.Stmt
	recentPlaysStmt *sql.Stmt
	playCountsStmt  *sql.Stmt
	totalPlaysStmt  *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures the schema exists. Plays recorded through it are tagged with
// sessionID. Caller should Close() it when finished.
func NewDatabase(dbPath, sessionID string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with few connections
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:      conn,
		logger:    logger,
		sessionID: sessionID,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Play log initialized")
	return db, nil
}

// createTables is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	playsTable := `
	CREATE TABLE IF NOT EXISTS plays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		file_path TEXT NOT NULL,
		played_at DATETIME NOT NULL
	);`

	if _, err := db.conn.Exec(playsTable); err != nil {
		return err
	}

	if err := db.runMigrations(); err != nil {
		return err
	}

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_plays_file_path ON plays(file_path);",
		"CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at);",
		"CREATE INDEX IF NOT EXISTS idx_plays_session ON plays(session_id);",
	}
	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}
	return nil
}

// runMigrations performs incremental schema updates in-place. Each
// migration is idempotent.
func (db *Database) runMigrations() error {
	// Migration 1: plays are tagged with the session that produced them
	var columnExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('plays')
		WHERE name = 'session_id'`).Scan(&columnExists)
	if err != nil {
		return err
	}

	if !columnExists {
		if _, err := db.conn.Exec("ALTER TABLE plays ADD COLUMN session_id TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
		db.logger.Info("Added session_id column to plays table")
	}
	return nil
}

func (db *Database) prepareStatements() error {
	var err error

	db.insertPlayStmt, err = db.conn.Prepare(`
		INSERT INTO plays (session_id, title, artist, file_path, played_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert play statement: %w", err)
	}

	db.recentPlaysStmt, err = db.conn.Prepare(`
		SELECT id, session_id, title, artist, file_path, played_at
		FROM plays
		ORDER BY played_at DESC, id DESC
		LIMIT ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent plays statement: %w", err)
	}

	db.playCountsStmt, err = db.conn.Prepare(`
		SELECT p.title, p.artist, p.file_path, c.n, c.last
		FROM (
			SELECT file_path, COUNT(*) AS n, MAX(id) AS last_id, MAX(played_at) AS last
			FROM plays
			GROUP BY file_path
		) c
		JOIN plays p ON p.id = c.last_id
		ORDER BY c.n DESC, c.last DESC
		LIMIT ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare play counts statement: %w", err)
	}

	db.totalPlaysStmt, err = db.conn.Prepare(`SELECT COUNT(*) FROM plays`)
	if err != nil {
		return fmt.Errorf("failed to prepare total plays statement: %w", err)
	}
	return nil
}

// RecordPlay appends a play to the log.
func (db *Database) RecordPlay(track models.Track, playedAt time.Time) error {
	_, err := db.insertPlayStmt.Exec(db.sessionID, track.Title, track.Artist, track.FilePath, playedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

// RecentPlays returns the latest plays, newest first.
func (db *Database) RecentPlays(limit int) ([]models.Play, error) {
	rows, err := db.recentPlaysStmt.Query(limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plays []models.Play
	for rows.Next() {
		var p models.Play
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Title, &p.Artist, &p.FilePath, &p.PlayedAt); err != nil {
			return nil, err
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// PlayCounts returns the most played files, using the title and artist of
// each file's latest play.
func (db *Database) PlayCounts(limit int) ([]models.PlayCount, error) {
	rows, err := db.playCountsStmt.Query(limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.PlayCount
	for rows.Next() {
		var c models.PlayCount
		var last string
		if err := rows.Scan(&c.Title, &c.Artist, &c.FilePath, &c.Count, &last); err != nil {
			return nil, err
		}
		c.LastPlayed = parseTimestamp(last)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TotalPlays returns the number of logged plays.
func (db *Database) TotalPlays() (int, error) {
	var n int
	err := db.totalPlaysStmt.QueryRow().Scan(&n)
	return n, err
}

// Ping checks that the database is reachable.
func (db *Database) Ping() error {
	return db.conn.Ping()
}

// Close releases prepared statements and the connection.
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.insertPlayStmt,
		db.recentPlaysStmt,
		db.playCountsStmt,
		db.totalPlaysStmt,
	}
	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// parseTimestamp reads an aggregated DATETIME, which go-sqlite3 returns as
// text rather than time.Time.
func parseTimestamp(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
