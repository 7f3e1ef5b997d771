package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func userContext(userID string) context.Context {
	return auth.WithSession(context.Background(), &auth.Session{UserID: userID, Source: "cookie"})
}

func decodeEvent(t *testing.T, entry observer.LoggedEntry) SecurityEvent {
	t.Helper()
	var raw string
	for _, f := range entry.Context {
		if f.Key == "event_json" {
			raw = f.String
		}
	}
	require.NotEmpty(t, raw, "event_json field missing")

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

func TestLogInjectionAttempt(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		wantUser string
	}{
		{name: "signed in", ctx: userContext("user-123"), wantUser: "user-123"},
		{name: "anonymous explore", ctx: context.Background(), wantUser: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, recorded := setupTestLogger(t)
			auditor := NewSecurityAuditor(logger)

			auditor.LogInjectionAttempt(tt.ctx, "GET /api/images/explore", SQLInjectionDetails{
				ParamName:   "search",
				ParamValue:  "'; DROP TABLE users--",
				Fingerprint: "s&1c",
			}, "192.168.1.100")

			entries := recorded.All()
			require.Len(t, entries, 1)
			assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
			assert.Equal(t, "security_audit", entries[0].LoggerName)

			event := decodeEvent(t, entries[0])
			assert.Equal(t, EventSQLInjectionAttempt, event.EventType)
			assert.Equal(t, "critical", event.Severity)
			assert.Equal(t, tt.wantUser, event.UserID)
			assert.Equal(t, "192.168.1.100", event.ClientIP)
			assert.Equal(t, "GET /api/images/explore", event.Endpoint)

			details, ok := event.Details.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "s&1c", details["fingerprint"])
		})
	}
}

func TestLogRateLimited(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	NewSecurityAuditor(logger).LogRateLimited(userContext("user-9"), "POST /api/images/generate", "10.0.0.1")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	event := decodeEvent(t, entries[0])
	assert.Equal(t, EventRateLimited, event.EventType)
	assert.Equal(t, "user-9", event.UserID)
	assert.Equal(t, "warning", event.Severity)
}

func TestLogResourceDeleted(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	NewSecurityAuditor(logger).LogResourceDeleted(userContext("user-1"), "DELETE /api/images/{id}",
		ResourceDetails{ResourceType: "image", ResourceID: "abc"}, "10.0.0.2")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	event := decodeEvent(t, entries[0])
	assert.Equal(t, EventResourceDeleted, event.EventType)
	details := event.Details.(map[string]any)
	assert.Equal(t, "image", details["resource_type"])
	assert.Equal(t, "abc", details["resource_id"])
}
