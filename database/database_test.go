package database

import (
	"bytes"
	"context"
	"errors"
	stdlog "log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"llm-chat-platform/config"

	"github.com/jackc/pgx/v5/pgconn"
)

// recordingHandler считает записи лога по уровням
type recordingHandler struct {
	mu     sync.Mutex
	counts   map[slog.Level]int
	attrs    []map[string]any
	messages []string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{counts: make(map[slog.Level]int)}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[r.Level]++
	h.messages = append(h.messages, r.Message)
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	h.attrs = append(h.attrs, attrs)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[level]
}

var errRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

// fakeDatabase возвращает Database, у которой первые failures попыток неуспешны
func fakeDatabase(failures int) (*Database, *recordingHandler, *int, *[]time.Duration) {
	h := newRecordingHandler()
	d := newDatabase(nil, slog.New(h))

	attempts := 0
	var delays []time.Duration
	d.ping = func(ctx context.Context) error {
		attempts++
		if attempts <= failures {
			return errRefused
		}
		return nil
	}
	d.sleep = func(ctx context.Context, delay time.Duration) error {
		delays = append(delays, delay)
		return nil
	}
	return d, h, &attempts, &delays
}

func TestCheckConnectionSucceedsOnAttemptK(t *testing.T) {
	const retries = 10

	for k := 1; k <= retries; k++ {
		d, h, attempts, delays := fakeDatabase(k - 1)

		if err := d.CheckConnection(context.Background(), retries, 2*time.Second); err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if *attempts != k {
			t.Errorf("k=%d: attempts = %d", k, *attempts)
		}
		if got := h.count(slog.LevelWarn); got != k-1 {
			t.Errorf("k=%d: warnings = %d, want %d", k, got, k-1)
		}
		if len(*delays) != k-1 {
			t.Errorf("k=%d: delays = %d, want %d", k, len(*delays), k-1)
		}
		if h.count(slog.LevelError) != 0 {
			t.Errorf("k=%d: unexpected error log", k)
		}
		if h.count(slog.LevelInfo) != 1 {
			t.Errorf("k=%d: expected one success log", k)
		}
	}
}

func TestCheckConnectionExhaustsRetries(t *testing.T) {
	for _, retries := range []int{1, 3, 10} {
		d, h, attempts, delays := fakeDatabase(retries + 5)

		err := d.CheckConnection(context.Background(), retries, 2*time.Second)
		if err == nil {
			t.Fatalf("retries=%d: expected error", retries)
		}
		if !errors.Is(err, errRefused) {
			t.Errorf("retries=%d: error %v does not wrap the connectivity error", retries, err)
		}
		if *attempts != retries {
			t.Errorf("retries=%d: attempts = %d", retries, *attempts)
		}
		if len(*delays) != retries-1 {
			t.Errorf("retries=%d: delays = %d, want %d", retries, len(*delays), retries-1)
		}
		for _, delay := range *delays {
			if delay != 2*time.Second {
				t.Errorf("retries=%d: delay = %v, want fixed 2s", retries, delay)
			}
		}
		if got := h.count(slog.LevelWarn); got != retries {
			t.Errorf("retries=%d: warnings = %d, want %d", retries, got, retries)
		}
		if h.count(slog.LevelError) != 1 {
			t.Errorf("retries=%d: expected one error log", retries)
		}
	}
}

func TestCheckConnectionNonPositiveRetries(t *testing.T) {
	d, _, attempts, _ := fakeDatabase(100)

	if err := d.CheckConnection(context.Background(), 0, time.Second); err == nil {
		t.Fatal("expected error")
	}
	if *attempts != 1 {
		t.Errorf("attempts = %d, want 1", *attempts)
	}
}

func TestCheckConnectionStopsOnContextCancel(t *testing.T) {
	d := newDatabase(nil, slog.New(newRecordingHandler()))
	d.ping = func(ctx context.Context) error { return errRefused }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.CheckConnection(ctx, 10, time.Hour)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if !errors.Is(err, errRefused) {
		t.Errorf("expected last attempt error to be wrapped, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("check did not stop when context expired")
	}
}

func TestCheckConnectionAttemptHook(t *testing.T) {
	var results []error
	d, _, _, _ := fakeDatabase(2)
	WithAttemptHook(func(err error) { results = append(results, err) })(d)

	if err := d.CheckConnection(context.Background(), 5, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("hook called %d times, want 3", len(results))
	}
	if results[0] == nil || results[1] == nil || results[2] != nil {
		t.Errorf("unexpected hook results: %v", results)
	}
}

func TestCheckConnectionLogsSQLState(t *testing.T) {
	h := newRecordingHandler()
	d := newDatabase(nil, slog.New(h))
	d.ping = func(ctx context.Context) error {
		return &pgconn.PgError{Code: "57P03", Message: "the database system is starting up"}
	}
	d.sleep = func(context.Context, time.Duration) error { return nil }

	_ = d.CheckConnection(context.Background(), 2, time.Millisecond)

	found := false
	for _, attrs := range h.attrs {
		if attrs["sqlstate"] == "57P03" {
			found = true
		}
	}
	if !found {
		t.Error("expected sqlstate attribute in warning log")
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCheckConnectionLogsOnlyStructuredRecords(t *testing.T) {
	var stdout bytes.Buffer
	stdlog.SetOutput(&stdout)
	defer stdlog.SetOutput(os.Stderr)

	settings := &config.Settings{Postgres: config.PostgresSettings{
		Host: "127.0.0.1", Port: 1, DB: "llmchat", User: "llmchat", Password: "llmchatpass", SSLMode: "disable",
	}}
	h := newRecordingHandler()
	d, err := Open(settings, slog.New(h))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.CheckConnection(ctx, 2, 10*time.Millisecond); err == nil {
		t.Fatal("expected connection to 127.0.0.1:1 to fail")
	}

	if got := h.count(slog.LevelWarn); got != 2 {
		t.Errorf("warnings = %d, want one per attempt", got)
	}
	if stdout.Len() != 0 {
		t.Errorf("unexpected output through standard logger: %q", stdout.String())
	}

	markers := []struct {
		name   string
		marker string
	}{
		{name: "ansi colour", marker: "\x1b["},
		{name: "rows counter", marker: "[rows:"},
		{name: "sql text", marker: "SELECT 1"},
	}
	for _, m := range markers {
		t.Run(m.name, func(t *testing.T) {
			for _, msg := range h.messages {
				if strings.Contains(msg, m.marker) {
					t.Errorf("log message %q contains %q", msg, m.marker)
				}
			}
		})
	}
}

func TestGormLoggerSkipsQueryErrors(t *testing.T) {
	h := newRecordingHandler()
	l := newGormLogger(slog.New(h))

	tests := []struct {
		name    string
		elapsed time.Duration
		err     error
		want    int
	}{
		{name: "failed query", elapsed: time.Millisecond, err: errRefused, want: 0},
		{name: "fast query", elapsed: time.Millisecond, want: 0},
		{name: "slow query", elapsed: time.Second, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(h.messages)
			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), func() (string, int64) {
				return "SELECT 1", 1
			}, tt.err)
			if got := len(h.messages) - before; got != tt.want {
				t.Errorf("records = %d, want %d", got, tt.want)
			}
		})
	}
}
