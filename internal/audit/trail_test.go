package audit

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	events []Event
	closed bool
}

func (w *captureWriter) Write(e Event) error {
	w.events = append(w.events, e)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

type failingWriter struct{}

func (failingWriter) Write(Event) error { return errors.New("disk full") }
func (failingWriter) Close() error      { return nil }

func TestTrailLoginSuccess(t *testing.T) {
	writer := &captureWriter{}
	trail := NewTrail(writer, nil)

	trail.LoginSuccess("jdoe", "user-1", "10.0.0.1", "curl/8.0")

	require.Len(t, writer.events, 1)
	e := writer.events[0]
	assert.Equal(t, EventLoginSuccess, e.EventType)
	assert.Equal(t, "jdoe", e.Username)
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, "10.0.0.1", e.IPAddress)
	assert.Equal(t, "curl/8.0", e.UserAgent)
	assert.Equal(t, "success", e.Result)
	assert.NotEqual(t, uuid.Nil, e.EventID)
	assert.False(t, e.Timestamp.IsZero())
}

func TestTrailLoginFailureCarriesReason(t *testing.T) {
	writer := &captureWriter{}
	trail := NewTrail(writer, nil)

	trail.LoginFailure("jdoe", "invalid password", "10.0.0.1", "")

	require.Len(t, writer.events, 1)
	e := writer.events[0]
	assert.Equal(t, EventLoginFailure, e.EventType)
	assert.Equal(t, "invalid password", e.Reason)
	assert.Equal(t, "failure", e.Result)
}

func TestTrailTokenIssued(t *testing.T) {
	writer := &captureWriter{}
	trail := NewTrail(writer, nil)

	trail.TokenIssued("jdoe", "user-1", 86400)

	require.Len(t, writer.events, 1)
	e := writer.events[0]
	assert.Equal(t, EventTokenIssued, e.EventType)
	assert.Equal(t, int64(86400), e.Details["expires_in"])
}

func TestTrailRateLimitExceeded(t *testing.T) {
	writer := &captureWriter{}
	trail := NewTrail(writer, nil)

	trail.RateLimitExceeded("jdoe", "10.0.0.1")

	require.Len(t, writer.events, 1)
	assert.Equal(t, EventRateLimitExceeded, writer.events[0].EventType)
}

func TestTrailSwallowsWriteErrors(t *testing.T) {
	trail := NewTrail(failingWriter{}, nil)

	// Must not panic or surface the error.
	trail.LoginSuccess("jdoe", "user-1", "10.0.0.1", "")
	trail.LoginFailure("jdoe", "invalid password", "10.0.0.1", "")
}

func TestTrailNilWriterDefaultsToNoop(t *testing.T) {
	trail := NewTrail(nil, nil)
	trail.LoginSuccess("jdoe", "user-1", "10.0.0.1", "")
	assert.NoError(t, trail.Close())
}

func TestTrailClose(t *testing.T) {
	writer := &captureWriter{}
	trail := NewTrail(writer, nil)

	require.NoError(t, trail.Close())
	assert.True(t, writer.closed)
}
