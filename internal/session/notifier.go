package session

import (
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/session/notify"
)

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg.Named("notify")}
}

func (n *LogNotifier) Notify(x notify.Notification) {
	fields := []zap.Field{
		zap.String("op", x.Op),
		zap.String("message", x.Message),
	}
	if x.Level == notify.LevelError {
		n.lg.Warn("Operation failed", append(fields, zap.Error(x.Err))...)
		return
	}
	n.lg.Info("Operation succeeded", fields...)
}
