package circuitbreaker

import "log/slog"

// StateChange describes a single breaker transition.
type StateChange struct {
	Name string `json:"name"`
	From State  `json:"from"`
	To   State  `json:"to"`
}

// Listener receives breaker state transitions. Transitions are delivered
// synchronously in the goroutine whose call triggered them, so listeners
// must not block.
type Listener interface {
	OnStateChange(change StateChange)
}

// LogListener writes state transitions to a structured logger.
type LogListener struct {
	logger *slog.Logger
}

func NewLogListener(logger *slog.Logger) *LogListener {
	return &LogListener{logger: logger}
}

func (l *LogListener) OnStateChange(change StateChange) {
	attrs := []any{
		slog.String("breaker", change.Name),
		slog.String("from", change.From.String()),
		slog.String("to", change.To.String()),
	}

	switch change.To {
	case StateOpen:
		l.logger.Warn("Circuit breaker opened, short-circuiting calls", attrs...)
	case StateHalfOpen:
		l.logger.Info("Circuit breaker half-open, probing for recovery", attrs...)
	case StateClosed:
		l.logger.Info("Circuit breaker closed, dependency recovered", attrs...)
	}
}
