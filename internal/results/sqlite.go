// Package results keeps a ledger of finished matches in SQLite.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amalg/go-pommerman/internal/game"
)

// Ledger records match results.
type Ledger struct {
	db *sql.DB
}

// Match is one finished match as stored in the ledger.
type Match struct {
	ID         int64
	RecordedAt time.Time
	Replay     string
	Kinds      [game.AgentCount]string // Decider per slot, empty if unseated
	Result     game.MatchResult
}

// Standing aggregates the matches played by one kind of agent.
type Standing struct {
	Kind     string
	Played   int
	Wins     int
	Survived int
	Wood     int
	Powerups int
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			winner INTEGER NOT NULL,
			draw INTEGER NOT NULL,
			faults INTEGER NOT NULL,
			replay TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS match_agents (
			match_id INTEGER NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			agent_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			dead INTEGER NOT NULL,
			died_at INTEGER NOT NULL,
			wood_demolished INTEGER NOT NULL,
			powerups_collected INTEGER NOT NULL,
			max_bomb_count INTEGER NOT NULL,
			bomb_strength INTEGER NOT NULL,
			can_kick INTEGER NOT NULL,
			PRIMARY KEY (match_id, agent_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_match_agents_kind ON match_agents(kind);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordMatch stores m and the stats of every seated agent in one
// transaction and returns the new match id.
func (l *Ledger) RecordMatch(ctx context.Context, m Match) (int64, error) {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now()
	}
	r := m.Result

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO matches(recorded_at,seed,steps,winner,draw,faults,replay) VALUES(?,?,?,?,?,?,?)`,
		m.RecordedAt.UTC().Format(time.RFC3339Nano), r.Seed, r.Steps, r.Winner, boolInt(r.Draw), r.Faults, m.Replay)
	if err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, kind := range m.Kinds {
		if kind == "" {
			continue
		}
		a := r.Agents[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO match_agents(match_id,agent_id,kind,dead,died_at,wood_demolished,powerups_collected,max_bomb_count,bomb_strength,can_kick)
			 VALUES(?,?,?,?,?,?,?,?,?,?)`,
			id, i, kind, boolInt(a.Dead), a.DiedAt, a.WoodDemolished, a.PowerupsCollected, a.MaxBombCount, a.BombStrength, boolInt(a.CanKick))
		if err != nil {
			return 0, fmt.Errorf("insert agent %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Match loads the match with the given id.
func (l *Ledger) Match(ctx context.Context, id int64) (Match, error) {
	m := Match{ID: id}
	var recorded string
	var draw int
	row := l.db.QueryRowContext(ctx,
		`SELECT recorded_at,seed,steps,winner,draw,faults,replay FROM matches WHERE id=?`, id)
	if err := row.Scan(&recorded, &m.Result.Seed, &m.Result.Steps, &m.Result.Winner, &draw, &m.Result.Faults, &m.Replay); err != nil {
		return m, fmt.Errorf("match %d: %w", id, err)
	}
	m.Result.Draw = draw != 0
	if t, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
		m.RecordedAt = t
	}
	for i := range m.Result.Agents {
		m.Result.Agents[i] = game.AgentInfo{ID: i, Pos: game.OffBoard}
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT agent_id,kind,dead,died_at,wood_demolished,powerups_collected,max_bomb_count,bomb_strength,can_kick
		 FROM match_agents WHERE match_id=? ORDER BY agent_id`, id)
	if err != nil {
		return m, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			agentID       int
			kind          string
			dead, canKick int
			a             game.AgentInfo
		)
		if err := rows.Scan(&agentID, &kind, &dead, &a.DiedAt, &a.WoodDemolished, &a.PowerupsCollected, &a.MaxBombCount, &a.BombStrength, &canKick); err != nil {
			return m, err
		}
		if agentID < 0 || agentID >= game.AgentCount {
			return m, fmt.Errorf("match %d: agent id %d out of range", id, agentID)
		}
		a.ID = agentID
		a.Pos = game.OffBoard
		a.Dead = dead != 0
		a.CanKick = canKick != 0
		m.Kinds[agentID] = kind
		m.Result.Agents[agentID] = a
	}
	return m, rows.Err()
}

// Standings aggregates all recorded matches per agent kind, best first.
func (l *Ledger) Standings(ctx context.Context) ([]Standing, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT a.kind,
			COUNT(*),
			SUM(CASE WHEN m.winner = a.agent_id THEN 1 ELSE 0 END),
			SUM(CASE WHEN a.dead = 0 THEN 1 ELSE 0 END),
			SUM(a.wood_demolished),
			SUM(a.powerups_collected)
		FROM match_agents a JOIN matches m ON m.id = a.match_id
		GROUP BY a.kind
		ORDER BY 3 DESC, 4 DESC, a.kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Standing
	for rows.Next() {
		var s Standing
		if err := rows.Scan(&s.Kind, &s.Played, &s.Wins, &s.Survived, &s.Wood, &s.Powerups); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
