package schedule

import (
	"fmt"
	"math"
	"time"
)

const (
	// MinCaptureDuration is the shortest session the recorder accepts.
	MinCaptureDuration Duration = 5
	// MinPeriodBuffer is the slack required between the end of one
	// capture and the nominal start of the next.
	MinPeriodBuffer Duration = 3
)

// Plan is the fixed timetable of a run. It is computed once and never
// changed while sessions execute.
type Plan struct {
	TotalSessions int       `yaml:"total_sessions" json:"total_sessions"`
	FirstStart    time.Time `yaml:"first_start" json:"first_start"`
	Period        Duration  `yaml:"period" json:"period"`
	Duration      Duration  `yaml:"duration" json:"duration"`
}

// Session identifies one capture of a plan.
type Session struct {
	// Number is the 1-based position in the plan.
	Number int
	// FileIndex numbers the output file.
	FileIndex    int
	NominalStart time.Time
	Duration     Duration
}

// ValidateTiming checks the capture duration and, when period is non-zero,
// that the period leaves MinPeriodBuffer after each capture.
func ValidateTiming(duration, period Duration) error {
	if duration < MinCaptureDuration {
		return &InvalidScheduleError{Reason: fmt.Sprintf("duration %s is shorter than the minimum of %s", duration, MinCaptureDuration)}
	}
	if period != 0 && period < duration+MinPeriodBuffer {
		return &InvalidScheduleError{Reason: fmt.Sprintf("period %s must be at least duration %s plus %d seconds", period, duration, int64(MinPeriodBuffer))}
	}
	return nil
}

// BuildPlan derives the session count and first start. Without an end
// instant the plan has a single session. A start already in the past is
// clamped to now; the session count still uses the configured start.
func BuildPlan(now, start time.Time, end *time.Time, period, duration Duration) (Plan, error) {
	if err := ValidateTiming(duration, period); err != nil {
		return Plan{}, err
	}

	plan := Plan{
		TotalSessions: 1,
		FirstStart:    start,
		Period:        period,
		Duration:      duration,
	}

	if end != nil {
		if !end.After(start) {
			return Plan{}, &InvalidScheduleError{Reason: fmt.Sprintf("end %s is not after start %s", end.Format(DateTimeLayout), start.Format(DateTimeLayout))}
		}
		if period == 0 {
			return Plan{}, &InvalidScheduleError{Reason: "period is required when an end time is set"}
		}
		span := end.Sub(start).Seconds()
		plan.TotalSessions = max(1, int(math.Floor(span/float64(period)+0.5)))
	}

	if now.After(start) {
		plan.FirstStart = now
	}
	return plan, nil
}

// NominalStart returns the planned start of session k (1-based).
func (p Plan) NominalStart(k int) time.Time {
	return p.FirstStart.Add(time.Duration(k-1) * p.Period.Std())
}

// Sessions lists every session of the plan, numbering files from firstIndex.
func (p Plan) Sessions(firstIndex int) []Session {
	sessions := make([]Session, 0, p.TotalSessions)
	for k := 1; k <= p.TotalSessions; k++ {
		sessions = append(sessions, Session{
			Number:       k,
			FileIndex:    firstIndex + k - 1,
			NominalStart: p.NominalStart(k),
			Duration:     p.Duration,
		})
	}
	return sessions
}
