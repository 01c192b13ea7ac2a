package core

import (
	"context"
	"time"
)

const (
	// ConflictTolerance absorbs clock and serialization skew between the
	// timestamp a client echoes back and the stored one.
	ConflictTolerance = time.Second

	// DefaultMaxImportRows is the data-row ceiling for one import file.
	DefaultMaxImportRows = 200

	DefaultHistoryLimit = 5
	MaxHistoryLimit     = 100

	DefaultCommitTimeout = 30 * time.Second
)

// Service provides the lead operations used by every frontend.
// It holds no per-request state; the Store is owned by the caller.
type Service struct {
	store         Store
	limiter       *ImportLimiter
	metrics       *Metrics
	now           func() time.Time
	maxImportRows int
	commitTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithImportLimiter bounds concurrent import work.
func WithImportLimiter(l *ImportLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithMetrics records operation outcomes.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxImportRows overrides the data-row ceiling.
func WithMaxImportRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImportRows = n
		}
	}
}

// WithCommitTimeout bounds one import commit. The commit ignores caller
// cancellation once started.
func WithCommitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.commitTimeout = d
		}
	}
}

// NewService creates a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		now:           time.Now,
		maxImportRows: DefaultMaxImportRows,
		commitTimeout: DefaultCommitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultImportWait)
	}
	return s
}

// ImportLimiter exposes the limiter for health checks and shutdown.
func (s *Service) ImportLimiter() *ImportLimiter {
	return s.limiter
}

// MaxImportRows is the configured data-row ceiling.
func (s *Service) MaxImportRows() int {
	return s.maxImportRows
}

// timestamp returns the write time for a new version. It is truncated to
// the store's microsecond precision and always later than prev.
func (s *Service) timestamp(prev time.Time) time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}

// withStore times one store call.
func withStore[T any](s *Service, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	defer s.metrics.observeStore(op, start)
	return fn()
}

func (s *Service) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
}
