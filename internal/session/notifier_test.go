package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/pizza-cart/internal/session/notify"
)

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(zap.New(core))

	n.Notify(notify.Notification{Level: notify.LevelSuccess, Op: "cart.add", Message: "Added Margherita"})
	n.Notify(notify.Notification{Level: notify.LevelError, Op: "summary", Message: "Pricing failed", Err: errors.New("timeout")})

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "notify", entries[0].LoggerName)
	assert.Equal(t, "cart.add", entries[0].ContextMap()["op"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "Pricing failed", entries[1].ContextMap()["message"])
	assert.Equal(t, "timeout", entries[1].ContextMap()["error"])
}
