package sshd

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/records"
)

func TestMain(m *testing.M) {
	mines.Log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type memRecorder struct {
	mu      sync.Mutex
	records []records.Record
}

func (m *memRecorder) Add(_ context.Context, r records.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memRecorder) all() []records.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]records.Record(nil), m.records...)
}

type terminal struct {
	io.Reader
	io.Writer
}

func setupServer(t *testing.T, board mines.Params) (*Server, *memRecorder) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	rec := &memRecorder{}
	s, err := New(Options{
		Board:   board,
		Log:     log,
		Records: rec,
		Source:  mines.NewRand(1),
	})
	require.NoError(t, err)
	return s, rec
}

func TestLoadHostKey(t *testing.T) {
	signer, err := LoadHostKey("")
	require.NoError(t, err)
	require.Equal(t, ssh.KeyAlgoED25519, signer.PublicKey().Type())

	path := filepath.Join(t.TempDir(), "host_key")
	created, err := LoadHostKey(path)
	require.NoError(t, err)
	require.FileExists(t, path)

	loaded, err := LoadHostKey(path)
	require.NoError(t, err)
	require.Equal(t, created.PublicKey().Marshal(), loaded.PublicKey().Marshal())

	bad := filepath.Join(t.TempDir(), "bad_key")
	require.NoError(t, os.WriteFile(bad, []byte("not a key"), 0o600))
	_, err = LoadHostKey(bad)
	require.Error(t, err)
}

func TestPlayOverTerminal(t *testing.T) {
	s, rec := setupServer(t, mines.Params{Rows: 1, Cols: 1})

	var out bytes.Buffer
	res, err := s.Play(context.Background(), terminal{
		strings.NewReader("0 0 reveal\r"), &out,
	}, s.log)
	require.NoError(t, err)
	require.True(t, res.Won)
	require.Contains(t, out.String(), "Congratulations! You've won the game.\r\n")

	recorded := rec.all()
	require.Len(t, recorded, 1)
	require.Equal(t, records.StatusWon, recorded[0].Status)
	require.Equal(t, "ssh", recorded[0].Channel)
}

func TestPlayRecordsAbandonedGame(t *testing.T) {
	s, rec := setupServer(t, mines.DefaultParams)

	var out bytes.Buffer
	res, err := s.Play(context.Background(), terminal{
		strings.NewReader("3\r4\rflag\rquit\r"), &out,
	}, s.log)
	require.NoError(t, err)
	require.True(t, res.Abandoned)
	require.Equal(t, 1, res.Moves)
	require.Contains(t, out.String(), "Flag placed.")

	recorded := rec.all()
	require.Len(t, recorded, 1)
	require.Equal(t, records.StatusAbandoned, recorded[0].Status)
}

func TestLineReader(t *testing.T) {
	var out bytes.Buffer
	r := &lineReader{t: term.NewTerminal(terminal{strings.NewReader("one\rtwo\r"), &out}, "")}
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", string(data))
}

func TestServeSession(t *testing.T) {
	s, rec := setupServer(t, mines.Params{Rows: 1, Cols: 1})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, l) }()

	client, err := ssh.Dial("tcp", l.Addr().String(), &ssh.ClientConfig{
		User:            "player",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stdin = strings.NewReader("0 0 reveal\r")
	require.NoError(t, session.Shell())
	require.NoError(t, session.Wait())

	require.Contains(t, out.String(), "Congratulations! You've won the game.")
	require.Len(t, rec.all(), 1)

	cancel()
	require.NoError(t, <-served)
}

func TestServeStopsWithIdleConnection(t *testing.T) {
	s, _ := setupServer(t, mines.Params{Rows: 1, Cols: 1})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, l) }()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// The server version line means the handshake is underway.
	banner := make([]byte, 4)
	_, err = io.ReadFull(conn, banner)
	require.NoError(t, err)
	require.Equal(t, "SSH-", string(banner))

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "Serve did not return after cancel")
	}
}

func TestNewUsesConfiguredHostKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")
	_, err := New(Options{
		Config: config.SSH{Addr: "127.0.0.1:0", HostKeyFile: path},
		Log:    logrus.New(),
		Board:  mines.DefaultParams,
	})
	require.NoError(t, err)
	require.FileExists(t, path)
}
