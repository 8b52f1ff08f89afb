package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alexisbeaulieu97/stageplan/internal/ports"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

// SQLiteStore keeps cache entries in a single sqlite database, which suits
// hosts where many stage trees share one cache.
type SQLiteStore struct {
	db     *sql.DB
	prefix string
}

// OpenSQLite opens (and initialises) the database at path.
func OpenSQLite(path, prefix string) (*SQLiteStore, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set cache db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set cache db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS plan_cache (
	cache_key TEXT PRIMARY KEY,
	stage TEXT NOT NULL,
	stages_only INTEGER NOT NULL,
	payload BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize plan cache schema: %w", err)
	}

	return &SQLiteStore{db: db, prefix: prefix}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements ports.PlanCache.
func (s *SQLiteStore) Get(ctx context.Context, id stage.ID, stagesOnly bool) ([]*step.Step, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM plan_cache WHERE cache_key = ?`,
		Key(s.prefix, id, stagesOnly)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query cache entry %q: %w", id, err)
	}

	steps, err := decode(id, stagesOnly, payload)
	if err != nil {
		return nil, false, err
	}
	return steps, true, nil
}

// Put implements ports.PlanCache.
func (s *SQLiteStore) Put(ctx context.Context, id stage.ID, stagesOnly bool, steps []*step.Step) error {
	payload, err := encode(id, stagesOnly, steps)
	if err != nil {
		return err
	}
	stagesOnlyInt := 0
	if stagesOnly {
		stagesOnlyInt = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plan_cache (cache_key, stage, stages_only, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		 payload = excluded.payload,
		 updated_at = excluded.updated_at`,
		Key(s.prefix, id, stagesOnly),
		string(id),
		stagesOnlyInt,
		payload,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save cache entry %q: %w", id, err)
	}
	return nil
}

// Clear implements ports.PlanCache.
func (s *SQLiteStore) Clear(ctx context.Context, id stage.ID) error {
	var err error
	if id == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM plan_cache WHERE cache_key LIKE ? ESCAPE '\'`, likeEscape(s.prefix)+`\_%`)
	} else {
		keys := keysFor(s.prefix, id)
		_, err = s.db.ExecContext(ctx, `DELETE FROM plan_cache WHERE cache_key IN (?, ?)`, keys[0], keys[1])
	}
	if err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}
	return nil
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ ports.PlanCache = (*SQLiteStore)(nil)
