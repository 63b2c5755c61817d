// Package notify defines the user-facing notification boundary. The engine
// reports outcomes through a Sink; it owns no presentation logic.
package notify

import "go.uber.org/zap"

// Kind classifies a user-facing notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Sink receives user-facing messages triggered by cart and checkout activity.
// Delivery is fire-and-forget; implementations must not block the caller and
// no return value is relied upon.
type Sink interface {
	Notify(kind Kind, message string)
}

// ZapSink logs notifications through a zap logger. The server has no direct
// presentation channel of its own; notifications land in the structured log
// while the HTTP layer carries the same outcome back in the response body.
type ZapSink struct {
	lg *zap.Logger
}

// NewZapSink creates a ZapSink writing to the given logger.
func NewZapSink(lg *zap.Logger) *ZapSink {
	return &ZapSink{lg: lg}
}

// Notify implements Sink.
func (s *ZapSink) Notify(kind Kind, message string) {
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("message", message),
	}
	if kind == KindError {
		s.lg.Warn("notification", fields...)
		return
	}
	s.lg.Info("notification", fields...)
}

// Discard drops all notifications.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Kind, string) {}
