// Package store is the record store: named JSON collections over a pluggable
// key/value Backend, with seeding, corruption recovery and a single-writer
// transaction per collection.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"rnp-recruitment/internal/platform/metrics"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/platform/sentinel"
)

// Collection is the logical key of one persisted collection.
type Collection string

const (
	Applicants     Collection = "rnp_applicants_v3"
	AdminUsers     Collection = "rnp_admin_users"
	ExamQuestions  Collection = "rnp_exam_questions"
	InterviewSlots Collection = "rnp_interview_slots"
	SystemConfig   Collection = "rnp_system_config"
	SystemLogs     Collection = "rnp_system_logs"
)

// Collections lists every collection the store manages.
func Collections() []Collection {
	return []Collection{Applicants, AdminUsers, ExamQuestions, InterviewSlots, SystemConfig, SystemLogs}
}

// Backend is the persistence capability. Get returns sentinel.ErrNotFound for
// missing keys; SetMany must apply all values or none.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetMany(ctx context.Context, values map[string][]byte) error
	Clear(ctx context.Context) error
}

const defaultTxTimeout = 5 * time.Second

// Store serializes writers per collection. Transactions touching several
// collections lock them in sorted order. Reset excludes all transactions.
type Store struct {
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	resetMu sync.RWMutex
	locks   map[Collection]*sync.Mutex
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTxTimeout bounds lock wait plus backend I/O for transactions whose
// context has no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		timeout: defaultTxTimeout,
		locks:   make(map[Collection]*sync.Mutex),
	}
	for _, c := range Collections() {
		s.locks[c] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads collection c into dst, seeding it when absent or unreadable.
func (s *Store) Load(ctx context.Context, c Collection, dst, seed any) error {
	return s.RunInTx(ctx, []Collection{c}, func(tx *Tx) error {
		return tx.Load(c, dst, seed)
	})
}

// Save replaces collection c with v.
func (s *Store) Save(ctx context.Context, c Collection, v any) error {
	return s.RunInTx(ctx, []Collection{c}, func(tx *Tx) error {
		return tx.Save(c, v)
	})
}

// RunInTx runs fn holding the write locks of collections. Writes staged with
// Tx.Save are committed together when fn returns nil; OnCommit hooks run after
// the locks are released.
func (s *Store) RunInTx(ctx context.Context, collections []Collection, fn func(tx *Tx) error) error {
	start := time.Now()
	defer s.metrics.ObserveStoreTx(start)

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ordered := slices.Clone(collections)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)
	for _, c := range ordered {
		if _, ok := s.locks[c]; !ok {
			return dErrors.New(dErrors.CodeInternal, "unknown collection "+string(c))
		}
	}

	tx, err := s.lockAndRun(ctx, ordered, fn)
	if err != nil {
		return err
	}
	for _, hook := range tx.onCommit {
		hook()
	}
	return nil
}

func (s *Store) lockAndRun(ctx context.Context, ordered []Collection, fn func(tx *Tx) error) (*Tx, error) {
	s.resetMu.RLock()
	defer s.resetMu.RUnlock()
	for _, c := range ordered {
		s.locks[c].Lock()
		defer s.locks[c].Unlock()
	}

	// Check again after acquiring locks
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	tx := newTx(ctx, s, ordered)
	if err := fn(tx); err != nil {
		return nil, err
	}
	if len(tx.writes) > 0 {
		if err := s.backend.SetMany(ctx, tx.writes); err != nil {
			return nil, backendError(err, "failed to commit records")
		}
	}
	return tx, nil
}

// Reset clears every collection. It waits for in-flight transactions.
func (s *Store) Reset(ctx context.Context) error {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	if err := s.backend.Clear(ctx); err != nil {
		return backendError(err, "failed to clear records")
	}
	s.logger.WarnContext(ctx, "record store cleared")
	return nil
}

func backendError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// Tx is the view of the store inside RunInTx.
type Tx struct {
	ctx      context.Context
	store    *Store
	allowed  []Collection
	writes   map[string][]byte
	onCommit []func()
}

func newTx(ctx context.Context, s *Store, allowed []Collection) *Tx {
	return &Tx{ctx: ctx, store: s, allowed: allowed, writes: make(map[string][]byte)}
}

// Context returns the transaction's context.
func (t *Tx) Context() context.Context {
	return t.ctx
}

// Load decodes collection c into dst, reading staged writes first. A missing
// collection is seeded; an undecodable one is logged and reset to the seed.
// Seeding is written through immediately.
func (t *Tx) Load(c Collection, dst, seed any) error {
	if err := t.check(c); err != nil {
		return err
	}

	raw, staged := t.writes[string(c)]
	if !staged {
		var err error
		raw, err = t.store.backend.Get(t.ctx, string(c))
		if errors.Is(err, sentinel.ErrNotFound) {
			return t.seed(c, dst, seed)
		}
		if err != nil {
			return backendError(err, "failed to read records")
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		t.store.logger.WarnContext(t.ctx, "collection unreadable, restoring seed data",
			"collection", string(c),
			"error", err,
		)
		t.store.metrics.IncrementStorageRecovery(string(c))
		return t.seed(c, dst, seed)
	}
	return nil
}

func (t *Tx) seed(c Collection, dst, seed any) error {
	raw, err := json.Marshal(seed)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode seed data")
	}
	if err := t.store.backend.SetMany(t.ctx, map[string][]byte{string(c): raw}); err != nil {
		return backendError(err, "failed to write seed data")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode seed data")
	}
	return nil
}

// Save stages v as the new content of collection c.
func (t *Tx) Save(c Collection, v any) error {
	if err := t.check(c); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode records")
	}
	t.writes[string(c)] = raw
	return nil
}

// OnCommit registers fn to run once the transaction has committed.
func (t *Tx) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

func (t *Tx) check(c Collection) error {
	if !slices.Contains(t.allowed, c) {
		return dErrors.New(dErrors.CodeInternal, "collection "+string(c)+" not locked by transaction")
	}
	return nil
}
