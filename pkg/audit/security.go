// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a filter value.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventRateLimited is logged when a user exceeds the generation or extraction budget.
	EventRateLimited SecurityEventType = "rate_limit_exceeded"
	// EventResourceDeleted is logged when a user deletes a context or image.
	EventResourceDeleted SecurityEventType = "resource_deleted"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Endpoint  string            `json:"endpoint,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a flagged parameter.
type SQLInjectionDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// ResourceDetails identifies a deleted resource.
type ResourceDetails struct {
	ResourceType string `json:"resource_type"` // "context" or "image"
	ResourceID   string `json:"resource_id"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor under the "security_audit"
// logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func (a *SecurityAuditor) event(ctx context.Context, t SecurityEventType, severity, endpoint, clientIP string, details any) (SecurityEvent, string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: t,
		UserID:    auth.GetUserIDFromContext(ctx),
		ClientIP:  clientIP,
		Endpoint:  endpoint,
		Details:   details,
		Severity:  severity,
	}
	// Marshaling known types does not fail.
	eventJSON, _ := json.Marshal(event)
	return event, string(eventJSON)
}

// LogInjectionAttempt records a flagged filter value. The request itself
// proceeds since every query is parameterised, but the attempt is logged at
// ERROR level for alerting.
//
// Example usage:
//
//	auditor.LogInjectionAttempt(ctx, "GET /api/images/explore",
//	    audit.SQLInjectionDetails{
//	        ParamName:   "search",
//	        ParamValue:  "'; DROP TABLE users--",
//	        Fingerprint: "s&1c",
//	    },
//	    r.RemoteAddr,
//	)
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, endpoint string, details SQLInjectionDetails, clientIP string) {
	event, eventJSON := a.event(ctx, EventSQLInjectionAttempt, "critical", endpoint, clientIP, details)

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", eventJSON),
		zap.String("endpoint", endpoint),
		zap.String("param_name", details.ParamName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)
}

// LogRateLimited records a rejected request at WARN level.
func (a *SecurityAuditor) LogRateLimited(ctx context.Context, endpoint string, clientIP string) {
	event, eventJSON := a.event(ctx, EventRateLimited, "warning", endpoint, clientIP, map[string]string{})

	a.logger.Warn("Rate limit exceeded",
		zap.String("event_json", eventJSON),
		zap.String("endpoint", endpoint),
		zap.String("client_ip", clientIP),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)
}

// LogResourceDeleted records an owner-initiated deletion at INFO level.
func (a *SecurityAuditor) LogResourceDeleted(ctx context.Context, endpoint string, details ResourceDetails, clientIP string) {
	event, eventJSON := a.event(ctx, EventResourceDeleted, "info", endpoint, clientIP, details)

	a.logger.Info("Resource deleted",
		zap.String("event_json", eventJSON),
		zap.String("resource_type", details.ResourceType),
		zap.String("resource_id", details.ResourceID),
		zap.String("client_ip", clientIP),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)
}
