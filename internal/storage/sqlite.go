package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage keeps the history of played games. The link graph itself is never stored.
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		game_id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		start_url TEXT NOT NULL,
		target_url TEXT NOT NULL,
		found INTEGER NOT NULL,
		hops INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL DEFAULT '[]',
		rounds INTEGER NOT NULL DEFAULT 0,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		search_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_games_pair ON games(start_url, target_url);
	CREATE INDEX IF NOT EXISTS idx_games_created ON games(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveGame inserts a finished game
func (s *Storage) SaveGame(rec GameRecord) error {
	path := rec.Path
	if path == nil {
		path = []string{}
	}
	pathJSON, err := json.Marshal(path)
	if err != nil {
		return fmt.Errorf("failed to encode path: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO games (game_id, base_url, start_url, target_url, found, hops, path, rounds, pages_fetched, search_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.GameID, rec.BaseURL, rec.Start, rec.Target, rec.Found, rec.Hops, string(pathJSON), rec.Rounds, rec.PagesFetched, rec.SearchMs)

	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

// RecentGames returns up to limit games, newest first
func (s *Storage) RecentGames(limit int) ([]*GameRecord, error) {
	rows, err := s.db.Query(`
		SELECT game_id, base_url, start_url, target_url, found, hops, path, rounds, pages_fetched, search_ms, created_at
		FROM games
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	defer rows.Close()

	var games []*GameRecord
	for rows.Next() {
		var rec GameRecord
		var pathJSON string
		if err := rows.Scan(&rec.GameID, &rec.BaseURL, &rec.Start, &rec.Target, &rec.Found, &rec.Hops,
			&pathJSON, &rec.Rounds, &rec.PagesFetched, &rec.SearchMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		if err := json.Unmarshal([]byte(pathJSON), &rec.Path); err != nil {
			return nil, fmt.Errorf("failed to decode path of game %s: %w", rec.GameID, err)
		}
		games = append(games, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
