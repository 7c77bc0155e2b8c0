package audit

import (
	"go.uber.org/zap"
)

// Trail records authentication events. Write failures are logged and
// swallowed; the audit trail must never fail a login.
type Trail struct {
	writer Writer
	logger *zap.Logger
}

// NewTrail creates an audit trail over the given writer.
func NewTrail(writer Writer, logger *zap.Logger) *Trail {
	if writer == nil {
		writer = NoopWriter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trail{writer: writer, logger: logger}
}

// LoginSuccess records a successful login and the token issued with it.
func (t *Trail) LoginSuccess(username, userID, ip, userAgent string) {
	e := newEvent(EventLoginSuccess)
	e.Username = username
	e.UserID = userID
	e.IPAddress = ip
	e.UserAgent = userAgent
	e.Result = "success"
	t.emit(e)
}

// LoginFailure records a rejected login attempt with the rejection reason.
func (t *Trail) LoginFailure(username, reason, ip, userAgent string) {
	e := newEvent(EventLoginFailure)
	e.Username = username
	e.Reason = reason
	e.IPAddress = ip
	e.UserAgent = userAgent
	e.Result = "failure"
	t.emit(e)
}

// TokenIssued records a token issuance with its lifetime.
func (t *Trail) TokenIssued(username, userID string, expiresIn int64) {
	e := newEvent(EventTokenIssued)
	e.Username = username
	e.UserID = userID
	e.Result = "success"
	e.Details = map[string]interface{}{"expires_in": expiresIn}
	t.emit(e)
}

// RateLimitExceeded records a throttled login attempt.
func (t *Trail) RateLimitExceeded(username, ip string) {
	e := newEvent(EventRateLimitExceeded)
	e.Username = username
	e.IPAddress = ip
	e.Result = "failure"
	t.emit(e)
}

// Close closes the underlying writer.
func (t *Trail) Close() error {
	return t.writer.Close()
}

func (t *Trail) emit(e Event) {
	if err := t.writer.Write(e); err != nil {
		t.logger.Warn("Failed to write audit event",
			zap.String("event_type", string(e.EventType)),
			zap.Error(err),
		)
	}
}
