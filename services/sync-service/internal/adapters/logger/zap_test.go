package logger

import (
	"context"
	"testing"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFieldsAndLogFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core))

	ctx := context.WithValue(context.Background(), interfaces.RunIDKey, "run-1")
	log.WithTenant("12345").InfoWithContext(ctx, "синхронизация завершена",
		interfaces.LogField{Key: "rows", Value: 242},
	)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "12345", fields["tenant_id"])
	assert.EqualValues(t, 242, fields["rows"])
}

func TestSetLevel(t *testing.T) {
	log := NewFromZap(zap.New(zapcore.NewNopCore(), zap.IncreaseLevel(zapcore.InfoLevel)))
	log.SetLevel(interfaces.ErrorLevel)
	assert.Equal(t, interfaces.ErrorLevel, log.GetLevel())
	assert.Equal(t, interfaces.WarnLevel, GetLoggerLevel("warn"))
	assert.Equal(t, interfaces.InfoLevel, GetLoggerLevel("nonsense"))
}
