// Package sqlite persists simulation reports in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/game"
	"github.com/samdwyer/storybattle/internal/sim"
	"github.com/samdwyer/storybattle/internal/storage/sqlite/migrations"
)

// Store persists simulation reports.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the report database at path and applies
// the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps the pragmas in effect for every query.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := migrate(ctx, s.db, migrations.FS); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveReports inserts reports in one transaction. Re-saving a report id
// overwrites it.
func (s *Store) SaveReports(ctx context.Context, reports ...sim.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO sim_reports (
	   id, seed, policy, enemy, style, outcome, turns,
	   player_hp, enemy_hp, actions, rejected, violations, created_at
	 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare save: %w", err)
	}
	defer stmt.Close()

	for _, r := range reports {
		if r.ID == "" {
			return fmt.Errorf("report for seed %d has no id", r.Seed)
		}
		violations := r.Violations
		if violations == nil {
			violations = []string{}
		}
		encoded, err := json.Marshal(violations)
		if err != nil {
			return fmt.Errorf("encode violations: %w", err)
		}
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Seed, r.Policy, r.Enemy, string(r.Style), string(r.Outcome), r.Turns,
			r.PlayerHP, r.EnemyHP, r.Actions, r.Rejected, string(encoded), created.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("save report %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// ListReports returns the newest reports first. limit <= 0 means all.
func (s *Store) ListReports(ctx context.Context, limit int) ([]sim.Report, error) {
	query := `SELECT id, seed, policy, enemy, style, outcome, turns,
	   player_hp, enemy_hp, actions, rejected, violations, created_at
	 FROM sim_reports ORDER BY created_at DESC, seed DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []sim.Report
	for rows.Next() {
		var (
			r                       sim.Report
			style, outcome, encoded string
			created                 int64
		)
		if err := rows.Scan(
			&r.ID, &r.Seed, &r.Policy, &r.Enemy, &style, &outcome, &r.Turns,
			&r.PlayerHP, &r.EnemyHP, &r.Actions, &r.Rejected, &encoded, &created,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.Style = combat.Style(style)
		r.Outcome = game.Outcome(outcome)
		r.CreatedAt = time.UnixMilli(created).UTC()
		if err := json.Unmarshal([]byte(encoded), &r.Violations); err != nil {
			return nil, fmt.Errorf("decode violations of %s: %w", r.ID, err)
		}
		if len(r.Violations) == 0 {
			r.Violations = nil
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

// Summary aggregates every stored report.
type Summary struct {
	Runs     int
	Outcomes map[game.Outcome]int
	AvgTurns float64
	Failing  int // Reports with at least one violation
}

// Summary computes outcome counts and average length over all reports.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	sum := Summary{Outcomes: make(map[game.Outcome]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*), COALESCE(SUM(turns), 0) FROM sim_reports GROUP BY outcome`)
	if err != nil {
		return sum, fmt.Errorf("summarize reports: %w", err)
	}
	defer rows.Close()

	turns := 0
	for rows.Next() {
		var (
			outcome string
			n, t    int
		)
		if err := rows.Scan(&outcome, &n, &t); err != nil {
			return sum, fmt.Errorf("scan summary: %w", err)
		}
		sum.Outcomes[game.Outcome(outcome)] = n
		sum.Runs += n
		turns += t
	}
	if err := rows.Err(); err != nil {
		return sum, fmt.Errorf("summarize reports: %w", err)
	}
	if sum.Runs > 0 {
		sum.AvgTurns = float64(turns) / float64(sum.Runs)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sim_reports WHERE violations != '[]'`,
	).Scan(&sum.Failing); err != nil {
		return sum, fmt.Errorf("count failing reports: %w", err)
	}
	return sum, nil
}
