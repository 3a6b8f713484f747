package db

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

	_ "modernc.org/sqlite"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/model"
)

var (
	ErrDuplicate = errors.New("duplicate")
	ErrNotFound  = errors.New("not found")
)

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) UpsertCharacter(ctx context.Context, c model.CharacterRecord) error {
	account := strings.TrimSpace(c.Account)
	name := strings.TrimSpace(c.Name)
	if account == "" {
		return fmt.Errorf("account is required")
	}
	if name == "" {
		return fmt.Errorf("character name is required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO characters(account, realm, name, level, class, league, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(account, realm, name) DO UPDATE SET
	level=excluded.level,
	class=excluded.class,
	league=excluded.league,
	created_at=excluded.created_at
`, account, c.Realm, name, nullableInt(c.Level), c.Class, c.League, ts(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert character: %w", err)
	}
	return nil
}

// ListCharacters returns the characters of account on realm, newest first.
// Account matching is case-insensitive.
func (s *Store) ListCharacters(ctx context.Context, account, realm string) ([]model.CharacterRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT account, realm, name, level, class, league, created_at
FROM characters
WHERE account = ? AND realm = ?
ORDER BY created_at DESC, name ASC
`, strings.TrimSpace(account), realm)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	out := make([]model.CharacterRecord, 0)
	for rows.Next() {
		var (
			c         model.CharacterRecord
			level     sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&c.Account, &c.Realm, &c.Name, &level, &c.Class, &c.League, &createdAt); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		if level.Valid {
			v := int(level.Int64)
			c.Level = &v
		}
		if c.CreatedAt, err = parseTS(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter characters: %w", err)
	}
	return out, nil
}

func (s *Store) InsertRun(ctx context.Context, run model.RunRecord) error {
	if strings.TrimSpace(run.RunID) == "" {
		return fmt.Errorf("run_id is required")
	}
	if run.Status == "" {
		run.Status = run.Result.Status
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs(run_id, account, realm, character, contact, intent, status, result_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.RunID, run.Account, run.Realm, run.Character, nullableStr(run.Contact), nullableStr(run.Intent), run.Status, string(raw), ts(run.CreatedAt))
	if err != nil {
		if isUniqueErr(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT run_id, account, realm, character, contact, intent, status, result_json, created_at
FROM runs
WHERE run_id = ?
`, runID)

	var (
		run       model.RunRecord
		contact   sql.NullString
		intent    sql.NullString
		raw       string
		createdAt string
	)
	if err := row.Scan(&run.RunID, &run.Account, &run.Realm, &run.Character, &contact, &intent, &run.Status, &raw, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, ErrNotFound
		}
		return model.RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	run.Contact = ptrStr(contact)
	run.Intent = ptrStr(intent)
	var result api.RunResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return model.RunRecord{}, fmt.Errorf("decode run result: %w", err)
	}
	run.Result = result
	var err error
	if run.CreatedAt, err = parseTS(createdAt); err != nil {
		return model.RunRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	return run, nil
}

// InsertInterest stores a follow-up submission. It returns ErrNotFound when
// the referenced run does not exist.
func (s *Store) InsertInterest(ctx context.Context, in model.InterestRecord) error {
	if strings.TrimSpace(in.InterestID) == "" {
		return fmt.Errorf("interest_id is required")
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO interests(interest_id, run_id, contact, rating, intent, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, in.InterestID, in.RunID, nullableStr(in.Contact), nullableInt(in.Rating), nullableStr(in.Intent), nullableStr(in.Notes), ts(in.CreatedAt))
	if err != nil {
		switch {
		case isForeignKeyErr(err):
			return ErrNotFound
		case isUniqueErr(err):
			return ErrDuplicate
		}
		return fmt.Errorf("insert interest: %w", err)
	}
	return nil
}

func (s *Store) ListInterests(ctx context.Context, runID string) ([]model.InterestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT interest_id, run_id, contact, rating, intent, notes, created_at
FROM interests
WHERE run_id = ?
ORDER BY created_at ASC, interest_id ASC
`, runID)
	if err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	defer rows.Close()

	out := make([]model.InterestRecord, 0)
	for rows.Next() {
		var (
			in        model.InterestRecord
			contact   sql.NullString
			rating    sql.NullInt64
			intent    sql.NullString
			notes     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&in.InterestID, &in.RunID, &contact, &rating, &intent, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		in.Contact = ptrStr(contact)
		in.Intent = ptrStr(intent)
		in.Notes = ptrStr(notes)
		if rating.Valid {
			v := int(rating.Int64)
			in.Rating = &v
		}
		if in.CreatedAt, err = parseTS(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter interests: %w", err)
	}
	return out, nil
}

func (s *Store) CountRunsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan run count: %w", err)
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter run counts: %w", err)
	}
	return out, nil
}

func (s *Store) CountInterests(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count interests: %w", err)
	}
	return n, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableStr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func ptrStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// tsLayout keeps a fixed fraction width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func isUniqueErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsAny(msg,
		"UNIQUE constraint failed",
		"constraint failed: UNIQUE",
	)
}

func isForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsAny(msg,
		"FOREIGN KEY constraint failed",
		"constraint failed: FOREIGN KEY",
	)
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}
