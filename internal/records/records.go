// Package records keeps the outcome of finished games. Boards themselves are
// never stored.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/mines"
)

var ErrDuplicate = errors.New("record already exists")

const DefaultLimit = 10

type Status string

const (
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusAbandoned Status = "abandoned"
)

type Record struct {
	ID        uuid.UUID `json:"record_id"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	MineCount int       `json:"mine_count"`
	Status    Status    `json:"status"`
	Moves     int       `json:"moves"`
	Revealed  int       `json:"revealed"`
	Channel   string    `json:"channel"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

func (r Record) Params() mines.Params {
	return mines.Params{Rows: r.Rows, Cols: r.Cols, MineCount: r.MineCount}
}

func (r Record) Playtime() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// NewRecord describes a game played on b. A board that is neither won nor
// over was abandoned.
func NewRecord(b *mines.Board, moves int, channel string, startedAt, endedAt time.Time) Record {
	status := StatusAbandoned
	switch {
	case b.CheckWin():
		status = StatusWon
	case b.IsGameOver():
		status = StatusLost
	}
	p := b.Params()
	return Record{
		ID:        uuid.New(),
		Rows:      p.Rows,
		Cols:      p.Cols,
		MineCount: p.MineCount,
		Status:    status,
		Moves:     moves,
		Revealed:  b.Revealed(),
		Channel:   channel,
		StartedAt: startedAt.UTC(),
		EndedAt:   endedAt.UTC(),
	}
}

type Store struct {
	db     *sql.DB
	driver string
	log    logrus.FieldLogger
}

// Open connects to the database behind dsn and brings its schema up to date.
// driver is either "sqlite3" or "pgx".
func Open(ctx context.Context, driver, dsn string, log logrus.FieldLogger) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	if driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := &Store{db: db, driver: driver, log: log}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.WithField("driver", driver).Debug("records store ready")
	return s, nil
}

// OpenConfig opens the store described by c.
func OpenConfig(ctx context.Context, c config.Records, log logrus.FieldLogger) (*Store, error) {
	dsn, err := c.LoadDSN()
	if err != nil {
		return nil, err
	}
	return Open(ctx, c.Driver, dsn, log)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsIntegrityConstraintViolation(pgErr.Code)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func (s *Store) Add(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_record (
			record_id, board_rows, board_cols, mine_count, status, moves,
			revealed, channel, started_at, ended_at, playtime_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`,
		r.ID, r.Rows, r.Cols, r.MineCount, string(r.Status), r.Moves,
		r.Revealed, r.Channel, r.StartedAt.UTC(), r.EndedAt.UTC(),
		r.Playtime().Milliseconds(),
	)
	if isIntegrityViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"record_id": r.ID,
		"status":    r.Status,
		"board":     r.Params().String(),
	}).Debug("record added")
	return nil
}

type Filter struct {
	Params *mines.Params
	Limit  int
}

func (f Filter) WhereClause() (string, []any) {
	clauses := []string{"status = $1"}
	args := []any{string(StatusWon)}
	if f.Params != nil {
		clauses = append(clauses,
			"board_rows = $2",
			"board_cols = $3",
			"mine_count = $4",
		)
		args = append(args, f.Params.Rows, f.Params.Cols, f.Params.MineCount)
	}
	return strings.Join(clauses, " AND "), args
}

// Highscores lists won games, fastest first.
func (s *Store) Highscores(ctx context.Context, f Filter) ([]Record, error) {
	where, args := f.WhereClause()
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)

	query := `
	SELECT
		record_id, board_rows, board_cols, mine_count, status, moves,
		revealed, channel, started_at, ended_at
	FROM game_record
	WHERE ` + where + `
	ORDER BY playtime_ms, ended_at
	LIMIT $` + fmt.Sprint(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			r      Record
			status string
		)
		if err := rows.Scan(
			&r.ID, &r.Rows, &r.Cols, &r.MineCount, &status, &r.Moves,
			&r.Revealed, &r.Channel, &r.StartedAt, &r.EndedAt,
		); err != nil {
			return nil, err
		}
		r.Status = Status(status)
		records = append(records, r)
	}
	return records, rows.Err()
}

type Stats struct {
	Played    int `json:"played"`
	Won       int `json:"won"`
	Lost      int `json:"lost"`
	Abandoned int `json:"abandoned"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM game_record GROUP BY status;`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		switch Status(status) {
		case StatusWon:
			stats.Won = count
		case StatusLost:
			stats.Lost = count
		case StatusAbandoned:
			stats.Abandoned = count
		}
		stats.Played += count
	}
	return stats, rows.Err()
}
