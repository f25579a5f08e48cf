package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsStoreAndGet(t *testing.T) {
	sessions, err := NewSessions(16, time.Minute)
	require.NoError(t, err)
	defer sessions.Close()

	id := sessions.NewID()
	assert.NotEmpty(t, id)
	assert.NotEqual(t, id, sessions.NewID())

	report := &Report{RunID: "r1"}
	require.NoError(t, sessions.begin(id))
	sessions.finish(id, report)

	got, err := sessions.Get(id)
	require.NoError(t, err)
	assert.Same(t, report, got)
}

func TestSessionsInFlightGuard(t *testing.T) {
	sessions, err := NewSessions(16, time.Minute)
	require.NoError(t, err)
	defer sessions.Close()

	id := sessions.NewID()
	require.NoError(t, sessions.begin(id))
	assert.ErrorIs(t, sessions.begin(id), ErrAnalysisInFlight)

	// finishing clears the guard even without a report
	sessions.finish(id, nil)
	assert.NoError(t, sessions.begin(id))
	sessions.finish(id, nil)
}

func TestSessionsGetUnknown(t *testing.T) {
	sessions, err := NewSessions(16, time.Minute)
	require.NoError(t, err)
	defer sessions.Close()

	_, err = sessions.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionsDrop(t *testing.T) {
	sessions, err := NewSessions(16, time.Minute)
	require.NoError(t, err)
	defer sessions.Close()

	id := sessions.NewID()
	require.NoError(t, sessions.begin(id))
	sessions.finish(id, &Report{RunID: "r1"})

	sessions.Drop(id)
	_, err = sessions.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
