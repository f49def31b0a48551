package tasklog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tasklogDatamodel "github.com/frahmantamala/ad-user-manager/internal/core/datamodel/tasklog"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry is one task outcome. Entries are never mutated after Append.
type Entry struct {
	Username  string    `json:"username"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Label     string    `json:"label"`
}

func ToDataModel(e Entry) *tasklogDatamodel.TaskLog {
	return &tasklogDatamodel.TaskLog{
		Username:  e.Username,
		Type:      e.Type,
		Status:    e.Status,
		Timestamp: e.Timestamp,
		Message:   e.Message,
		Label:     e.Label,
	}
}

func FromDataModel(m *tasklogDatamodel.TaskLog) Entry {
	return Entry{
		Username:  m.Username,
		Type:      m.Type,
		Status:    m.Status,
		Timestamp: m.Timestamp,
		Message:   m.Message,
		Label:     m.Label,
	}
}

// Store persists the log. Append receives the new entry and a snapshot of the
// whole log including it, so both row stores and whole-file stores can be
// served.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Append(ctx context.Context, entry Entry, all []Entry) error
}

// Log is the in-memory, append-only outcome log. Reads never wait on
// persistence.
type Log struct {
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	entries []Entry

	// serialises append+persist so stores see entries in log order
	persistMu sync.Mutex
}

func New(store Store, logger *slog.Logger) *Log {
	return &Log{
		store:   store,
		logger:  logger,
		entries: []Entry{},
	}
}

// Load replaces the in-memory log with the stored one. Storage that cannot
// be read leaves the log empty.
func (l *Log) Load(ctx context.Context) {
	entries, err := l.store.Load(ctx)
	if err != nil {
		l.logger.Error("failed to load task log, starting empty", "error", err)
		entries = nil
	}
	if entries == nil {
		entries = []Entry{}
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	l.logger.Info("task log loaded", "count", len(entries))
}

// Append adds entry to the log and persists it. Persistence errors are
// logged, never returned; the in-memory entry stays either way.
func (l *Log) Append(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	snapshot := append([]Entry(nil), l.entries...)
	l.mu.Unlock()

	if err := l.store.Append(ctx, entry, snapshot); err != nil {
		l.logger.Error("failed to persist task log entry",
			"error", err,
			"username", entry.Username,
			"type", entry.Type)
	}
}

// All returns a copy of the log in insertion order.
func (l *Log) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
