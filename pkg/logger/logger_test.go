package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetLogger_NopBeforeInit(t *testing.T) {
	prev := log
	log = nil
	t.Cleanup(func() { log = prev })

	require.NotNil(t, GetLogger())
	Info(context.Background(), "dropped")
}

func TestWithContext_AddsRequestAndAccountFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := log
	log = zap.New(core)
	t.Cleanup(func() { log = prev })

	ctx := WithAccountID(WithRequestID(context.Background(), "req-1"), "acc-1")
	Warn(ctx, "hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "req-1", fields["request_id"])
	require.Equal(t, "acc-1", fields["account_id"])
}

func TestLogRequest_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := log
	log = zap.New(core)
	t.Cleanup(func() { log = prev })

	ctx := context.Background()
	LogRequest(ctx, "GET", "/health", 200, time.Millisecond, "127.0.0.1")
	LogRequest(ctx, "POST", "/accounts", 401, time.Millisecond, "127.0.0.1")
	LogRequest(ctx, "POST", "/payments/orders", 503, time.Millisecond, "127.0.0.1")

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, zap.InfoLevel, entries[0].Level)
	require.Equal(t, zap.WarnLevel, entries[1].Level)
	require.Equal(t, zap.ErrorLevel, entries[2].Level)
}

func TestInit_ProductionAndDevelopment(t *testing.T) {
	prev := log
	t.Cleanup(func() {
		log = prev
		once = sync.Once{}
	})

	log = nil
	once = sync.Once{}
	Init("production")
	require.NotNil(t, GetLogger())

	log = nil
	once = sync.Once{}
	Init("development")
	require.NotNil(t, GetLogger())
	require.NotNil(t, WithContext(nil))
	Sync()
}
