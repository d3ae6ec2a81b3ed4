package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store"
	"rnp-recruitment/pkg/requestcontext"
)

const sinkTimeout = 5 * time.Second

// Sink receives committed entries, e.g. an external event stream.
type Sink interface {
	Publish(ctx context.Context, e Entry) error
}

// Log is the append-only system log kept in the store. Entries written with
// Append commit atomically with the caller's other writes.
type Log struct {
	store   *store.Store
	sinks   []Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Log)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Log) {
		l.metrics = m
	}
}

// WithSink forwards every committed entry to s.
func WithSink(s Sink) Option {
	return func(l *Log) {
		l.sinks = append(l.sinks, s)
	}
}

func New(st *store.Store, opts ...Option) *Log {
	l := &Log{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records an entry inside tx. The acting user comes from the request
// context. tx must hold store.SystemLogs.
func (l *Log) Append(tx *store.Tx, action Action, details string) error {
	return l.AppendAs(tx, requestcontext.Actor(tx.Context()), action, details)
}

// AppendAs is Append with an explicit actor, for actions taken before the
// request carries a principal, such as a login.
func (l *Log) AppendAs(tx *store.Tx, actor string, action Action, details string) error {
	ctx := tx.Context()
	var entries []Entry
	if err := tx.Load(store.SystemLogs, &entries, []Entry{}); err != nil {
		return err
	}

	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		User:      actor,
		Details:   details,
	}
	if err := tx.Save(store.SystemLogs, Prepend(entries, e)); err != nil {
		return err
	}

	tx.OnCommit(func() { l.committed(ctx, e) })
	return nil
}

// Record appends an entry in its own transaction.
func (l *Log) Record(ctx context.Context, action Action, details string) error {
	return l.store.RunInTx(ctx, []store.Collection{store.SystemLogs}, func(tx *store.Tx) error {
		return l.Append(tx, action, details)
	})
}

// List returns all retained entries, newest first.
func (l *Log) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := l.store.Load(ctx, store.SystemLogs, &entries, []Entry{}); err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *Log) committed(ctx context.Context, e Entry) {
	l.logger.InfoContext(ctx, "audit",
		"action", string(e.Action),
		"user", e.User,
		"details", e.Details,
		"request_id", requestcontext.RequestID(ctx),
	)
	if len(l.sinks) == 0 {
		return
	}

	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	for _, s := range l.sinks {
		if err := s.Publish(sinkCtx, e); err != nil {
			l.metrics.IncrementAuditSinkFailure()
			l.logger.WarnContext(ctx, "failed to forward audit entry",
				"action", string(e.Action),
				"entry_id", e.ID,
				"error", err,
			)
		}
	}
}
