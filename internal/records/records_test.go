package records

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/mines"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	path := filepath.Join(t.TempDir(), "records.db")
	s, err := Open(context.Background(), config.DriverSQLite, path, log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func record(p mines.Params, status Status, playtime time.Duration) Record {
	return Record{
		ID:        uuid.New(),
		Rows:      p.Rows,
		Cols:      p.Cols,
		MineCount: p.MineCount,
		Status:    status,
		Moves:     7,
		Revealed:  12,
		Channel:   "cli",
		StartedAt: epoch,
		EndedAt:   epoch.Add(playtime),
	}
}

func TestStoreEmpty(t *testing.T) {
	s := setupTestStore(t)

	scores, err := s.Highscores(context.Background(), Filter{})
	require.NoError(t, err)
	require.Empty(t, scores)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{}, stats)
}

func TestStoreVersion(t *testing.T) {
	s := setupTestStore(t)

	version, dirty, err := s.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(2), version)
}

func TestStoreReopen(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	s, err := Open(ctx, config.DriverSQLite, path, log)
	require.NoError(t, err)
	r := record(mines.DefaultParams, StatusWon, time.Second)
	require.NoError(t, s.Add(ctx, r))
	require.NoError(t, s.Close())

	s, err = Open(ctx, config.DriverSQLite, path, log)
	require.NoError(t, err)
	defer s.Close()

	scores, err := s.Highscores(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, r.ID, scores[0].ID)
}

func TestStoreAddDuplicate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := record(mines.DefaultParams, StatusLost, time.Second)
	require.NoError(t, s.Add(ctx, r))
	require.ErrorIs(t, s.Add(ctx, r), ErrDuplicate)
}

func TestStoreHighscores(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	small := mines.Params{Rows: 5, Cols: 5, MineCount: 3}
	slow := record(mines.DefaultParams, StatusWon, 9*time.Second)
	fast := record(mines.DefaultParams, StatusWon, 3*time.Second)
	other := record(small, StatusWon, time.Second)
	for _, r := range []Record{
		slow,
		fast,
		other,
		record(mines.DefaultParams, StatusLost, time.Millisecond),
		record(mines.DefaultParams, StatusAbandoned, time.Millisecond),
	} {
		require.NoError(t, s.Add(ctx, r))
	}

	scores, err := s.Highscores(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	require.Equal(t, other.ID, scores[0].ID)
	require.Equal(t, fast.ID, scores[1].ID)
	require.Equal(t, slow.ID, scores[2].ID)

	scores, err = s.Highscores(ctx, Filter{Params: &mines.DefaultParams, Limit: 1})
	require.NoError(t, err)
	require.Len(t, scores, 1)

	got := scores[0]
	require.Equal(t, fast.ID, got.ID)
	require.Equal(t, StatusWon, got.Status)
	require.Equal(t, mines.DefaultParams, got.Params())
	require.Equal(t, 7, got.Moves)
	require.Equal(t, 12, got.Revealed)
	require.Equal(t, "cli", got.Channel)
	require.True(t, fast.StartedAt.Equal(got.StartedAt))
	require.Equal(t, 3*time.Second, got.Playtime())

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Played: 5, Won: 3, Lost: 1, Abandoned: 1}, stats)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "", logrus.New())
	require.Error(t, err)
}

type fixedSource struct{ values []int }

func (f *fixedSource) IntN(n int) int {
	v := f.values[0]
	f.values = f.values[1:]
	return v % n
}

func TestNewRecord(t *testing.T) {
	params := mines.Params{Rows: 2, Cols: 2, MineCount: 1}
	newBoard := func() *mines.Board {
		b, err := mines.New(params, &fixedSource{values: []int{0, 0}})
		require.NoError(t, err)
		return b
	}

	abandoned := newBoard()
	r := NewRecord(abandoned, 0, "ssh", epoch, epoch.Add(time.Minute))
	require.Equal(t, StatusAbandoned, r.Status)
	require.Equal(t, params, r.Params())
	require.Equal(t, time.Minute, r.Playtime())
	require.NotEqual(t, uuid.Nil, r.ID)

	lost := newBoard()
	lost.ApplyMove(0, 0, mines.Reveal)
	require.Equal(t, StatusLost, NewRecord(lost, 1, "ssh", epoch, epoch).Status)

	won := newBoard()
	won.ApplyMove(0, 1, mines.Reveal)
	won.ApplyMove(1, 0, mines.Reveal)
	won.ApplyMove(1, 1, mines.Reveal)
	r = NewRecord(won, 3, "ssh", epoch, epoch)
	require.Equal(t, StatusWon, r.Status)
	require.Equal(t, 3, r.Revealed)
}

func TestOpenConfig(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	s, err := OpenConfig(context.Background(), config.Records{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "records.db"),
	}, log)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenConfig(context.Background(), config.Records{Driver: config.DriverSQLite}, log)
	require.Error(t, err)
}
