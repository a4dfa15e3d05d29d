package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of a Driver.
type State string

const (
	StateScheduled State = "SCHEDULED"
	StateWaiting   State = "WAITING"
	StateCapturing State = "CAPTURING"
	StateCompleted State = "COMPLETED"
	StateAborted   State = "ABORTED"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeAborted   Outcome = "aborted"
)

// Result is the outcome of one capture session.
type Result struct {
	Session Session
	Outcome Outcome
	// Path is set for completed sessions.
	Path string
	// Reason and Err are set for aborted sessions.
	Reason string
	Err    error

	StartedAt  time.Time
	FinishedAt time.Time
	Frames     int
	Level      float64
	Clipping   bool
}

// Completed builds a successful result.
func Completed(session Session, path string) Result {
	return Result{Session: session, Outcome: OutcomeCompleted, Path: path}
}

// Aborted builds a failed result.
func Aborted(session Session, reason string, err error) Result {
	return Result{Session: session, Outcome: OutcomeAborted, Reason: reason, Err: err}
}

// Interrupted reports whether the session was stopped by cancellation
// rather than by a capture failure.
func (r Result) Interrupted() bool {
	return r.Outcome == OutcomeAborted && errors.Is(r.Err, ErrInterrupted)
}

// Capturer runs one blocking capture session.
type Capturer interface {
	Capture(ctx context.Context, session Session) Result
}

// Report summarises a run in session order.
type Report struct {
	Plan    Plan
	State   State
	Results []Result
}

func (r Report) CompletedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeCompleted {
			n++
		}
	}
	return n
}

// Status is a point-in-time view of a running Driver.
type Status struct {
	State         State     `json:"state"`
	Session       int       `json:"session"`
	TotalSessions int       `json:"total_sessions"`
	NextStart     time.Time `json:"next_start,omitempty"`
	Completed     int       `json:"completed"`
	Failed        int       `json:"failed"`
	LastFile      string    `json:"last_file,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

type DriverConfig struct {
	Capturer Capturer
	Clock    Clock
	Logger   *slog.Logger
	// FirstIndex numbers the first output file.
	FirstIndex int
}

// Driver executes a Plan session by session, realigning each start to the
// plan's nominal timetable.
type Driver struct {
	capturer   Capturer
	clock      Clock
	logger     *slog.Logger
	firstIndex int

	mu     sync.RWMutex
	status Status
}

func NewDriver(cfg DriverConfig) *Driver {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Driver{
		capturer:   cfg.Capturer,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		firstIndex: cfg.FirstIndex,
		status:     Status{State: StateScheduled},
	}
}

// Status returns a snapshot safe to read from other goroutines.
func (d *Driver) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

func (d *Driver) update(fn func(*Status)) {
	d.mu.Lock()
	fn(&d.status)
	d.mu.Unlock()
}

// Run executes every session of plan. Capture failures are recorded and
// the run continues; interruption stops the run and returns ErrInterrupted.
func (d *Driver) Run(ctx context.Context, plan Plan) (Report, error) {
	report := Report{Plan: plan, State: StateScheduled}
	d.update(func(s *Status) {
		s.State = StateScheduled
		s.TotalSessions = plan.TotalSessions
	})

	d.logger.Info("Schedule started",
		"sessions", plan.TotalSessions,
		"first_start", plan.FirstStart.Format(DateTimeLayout),
		"period", plan.Period,
		"duration", plan.Duration)

	for _, session := range plan.Sessions(d.firstIndex) {
		if err := ctx.Err(); err != nil {
			return d.abort(report, session, fmt.Errorf("%w: %w", ErrInterrupted, err))
		}

		d.update(func(s *Status) {
			s.State = StateWaiting
			s.Session = session.Number
			s.NextStart = session.NominalStart
		})

		wait := session.NominalStart.Sub(d.clock.Now())
		switch {
		case wait > 0:
			d.logger.Info("Waiting for session", "session", session.Number, "start", session.NominalStart.Format(DateTimeLayout), "wait", wait.Round(time.Second))
		case wait < -time.Second:
			d.logger.Warn("Session is behind schedule, starting now", "session", session.Number, "lag", (-wait).Round(time.Second))
		}

		if err := WaitUntil(ctx, d.clock, session.NominalStart); err != nil {
			return d.abort(report, session, err)
		}

		d.update(func(s *Status) { s.State = StateCapturing })
		d.logger.Info("Session started", "session", session.Number, "of", plan.TotalSessions, "file_index", session.FileIndex)

		result := d.capturer.Capture(ctx, session)
		report.Results = append(report.Results, result)

		if result.Interrupted() {
			return d.abort(report, session, result.Err)
		}

		if result.Outcome == OutcomeAborted {
			d.logger.Error("Session failed", "session", session.Number, "reason", result.Reason, "error", result.Err)
			d.update(func(s *Status) {
				s.Failed++
				if result.Err != nil {
					s.LastError = result.Err.Error()
				}
			})
			continue
		}

		d.logger.Info("Session completed", "session", session.Number, "path", result.Path)
		d.update(func(s *Status) {
			s.Completed++
			s.LastFile = result.Path
		})
	}

	report.State = StateCompleted
	d.update(func(s *Status) {
		s.State = StateCompleted
		s.NextStart = time.Time{}
	})
	d.logger.Info("Schedule completed", "completed", report.CompletedCount(), "sessions", plan.TotalSessions)
	return report, nil
}

func (d *Driver) abort(report Report, session Session, err error) (Report, error) {
	report.State = StateAborted
	d.update(func(s *Status) {
		s.State = StateAborted
		s.NextStart = time.Time{}
		s.LastError = err.Error()
	})
	d.logger.Warn("Schedule aborted", "session", session.Number, "reason", err)
	if !errors.Is(err, ErrInterrupted) {
		err = fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return report, err
}
