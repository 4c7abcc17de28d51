package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dharmasatrya/fareengine/internal/models"
)

// SQLiteStore keeps sessions in a single table; criteria and offers are
// stored as JSON documents.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS search_sessions (
			id TEXT PRIMARY KEY,
			criteria TEXT NOT NULL,
			offers TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON search_sessions(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, sess models.SearchSession) error {
	criteriaJSON, err := json.Marshal(sess.Criteria)
	if err != nil {
		return err
	}
	offers := sess.Offers
	if offers == nil {
		offers = []models.Offer{}
	}
	offersJSON, err := json.Marshal(offers)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO search_sessions (id, criteria, offers, status, created_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, string(criteriaJSON), string(offersJSON), string(sess.Status),
		sess.CreatedAt.UnixMilli(), sess.ExpiresAt.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.SearchSession, error) {
	return s.get(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(ctx context.Context, q queryer, id string) (*models.SearchSession, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, criteria, offers, status, created_at, expires_at
		FROM search_sessions WHERE id = ?
	`, id)

	var sess models.SearchSession
	var criteriaJSON, offersJSON, status string
	var createdAt, expiresAt int64

	err := row.Scan(&sess.ID, &criteriaJSON, &offersJSON, &status, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(criteriaJSON), &sess.Criteria); err != nil {
		return nil, fmt.Errorf("decode criteria: %w", err)
	}
	if err := json.Unmarshal([]byte(offersJSON), &sess.Offers); err != nil {
		return nil, fmt.Errorf("decode offers: %w", err)
	}
	sess.Status = models.SessionStatus(status)
	sess.CreatedAt = time.UnixMilli(createdAt).UTC()
	sess.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &sess, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch models.SessionPatch) (*models.SearchSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sess, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	applyPatch(sess, patch)

	offers := sess.Offers
	if offers == nil {
		offers = []models.Offer{}
	}
	offersJSON, err := json.Marshal(offers)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE search_sessions SET offers = ?, status = ?, updated_at = ? WHERE id = ?
	`, string(offersJSON), string(sess.Status), time.Now().UnixMilli(), id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
