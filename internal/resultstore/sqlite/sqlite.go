// Package sqlite persists run matrices in a SQLite database file.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"diachron/internal/domain"
	perr "diachron/internal/platform/errors"
	"diachron/internal/resultstore"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "diachron_runs.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs(
	id TEXT PRIMARY KEY,
	variant TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	eras TEXT NOT NULL,
	targets TEXT NOT NULL);
CREATE INDEX IF NOT EXISTS runs_variant ON runs(variant, created_at);
CREATE TABLE IF NOT EXISTS scores(
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	target INTEGER NOT NULL,
	era INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	value REAL,
	PRIMARY KEY(run_id, target, era, seq));`

// Storage is a domain.RunStore backed by SQLite. A missing score is stored
// as NULL.
type Storage struct {
	db *sql.DB
}

var _ domain.RunStore = (*Storage)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Storage, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(filepath.Clean(path)); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "create %s", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "open %s", path)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "enable foreign keys")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "create schema")
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Save(runs *domain.Runs) (id string, err error) {
	if err := resultstore.Prepare(runs); err != nil {
		return "", err
	}
	eras, _ := json.Marshal(runs.Eras)
	targets, _ := json.Marshal(runs.Targets)

	tx, err := s.db.Begin()
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeStorage, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM scores WHERE run_id = ?`, runs.ID); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeStorage, "replace scores")
	}
	if _, err = tx.Exec(`DELETE FROM runs WHERE id = ?`, runs.ID); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeStorage, "replace runs")
	}
	if _, err = tx.Exec(`INSERT INTO runs(id, variant, created_at, eras, targets) VALUES(?,?,?,?,?)`,
		runs.ID, string(runs.Variant), runs.CreatedAt.UnixNano(), string(eras), string(targets)); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeStorage, "insert runs")
	}
	stmt, err := tx.Prepare(`INSERT INTO scores(run_id, target, era, seq, value) VALUES(?,?,?,?,?)`)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeStorage, "prepare scores")
	}
	defer stmt.Close()
	for t, row := range runs.Scores {
		for e, series := range row {
			for i, sc := range series {
				var v sql.NullFloat64
				if sc.Valid {
					v = sql.NullFloat64{Float64: sc.Value, Valid: true}
				}
				if _, err = stmt.Exec(runs.ID, t, e, i, v); err != nil {
					return "", perr.Wrap(err, perr.ErrorCodeStorage, "insert score")
				}
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeStorage, "commit")
	}
	return runs.ID, nil
}

func (s *Storage) Load(id string) (*domain.Runs, error) {
	var (
		variant, eras, targets string
		created                int64
	)
	err := s.db.QueryRow(`SELECT variant, created_at, eras, targets FROM runs WHERE id = ?`, id).
		Scan(&variant, &created, &eras, &targets)
	if perr.Is(err, sql.ErrNoRows) {
		return nil, perr.NotFoundf("runs %s not found", id)
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "load runs %s", id)
	}

	var labels, words []string
	if err := json.Unmarshal([]byte(eras), &labels); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "decode eras of %s", id)
	}
	if err := json.Unmarshal([]byte(targets), &words); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "decode targets of %s", id)
	}
	runs := domain.NewRuns(domain.Variant(variant), labels, words)
	runs.ID = id
	runs.CreatedAt = time.Unix(0, created).UTC()

	rows, err := s.db.Query(`SELECT target, era, value FROM scores WHERE run_id = ? ORDER BY target, era, seq`, id)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "query scores of %s", id)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t, e int
			v    sql.NullFloat64
		)
		if err := rows.Scan(&t, &e, &v); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "scan score of %s", id)
		}
		if t >= len(words) || e >= len(labels) {
			return nil, perr.Storagef("score (%d, %d) of %s is out of range", t, e, id)
		}
		sc := domain.Missing()
		if v.Valid {
			sc = domain.Similarity(v.Float64)
		}
		runs.Scores[t][e] = append(runs.Scores[t][e], sc)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "read scores of %s", id)
	}
	return runs, nil
}

func (s *Storage) Latest(variant domain.Variant) (*domain.Runs, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM runs WHERE variant = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, string(variant)).Scan(&id)
	if perr.Is(err, sql.ErrNoRows) {
		return nil, perr.NotFoundf("no %s runs stored", variant)
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "latest %s runs", variant)
	}
	return s.Load(id)
}

func (s *Storage) Close() error { return s.db.Close() }
