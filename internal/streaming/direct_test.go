package streaming

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/models"
)

func TestDirectPlayManager_Lifecycle(t *testing.T) {
	m := NewDirectPlayManager(time.Minute, testLogger())
	t.Cleanup(m.Shutdown)

	fileID := models.NewULID()
	sess := m.Open(fileID, "alice")
	require.NotEqual(t, uuid.Nil, sess.ID)

	require.NoError(t, m.Heartbeat(sess.ID))
	assert.True(t, m.ActiveFileIDs()[fileID])
	assert.Len(t, m.Sessions(), 1)

	require.NoError(t, m.Close(sess.ID))
	assert.ErrorIs(t, m.Heartbeat(sess.ID), ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(sess.ID), ErrSessionNotFound)
	assert.Empty(t, m.Sessions())
}

func TestDirectPlayManager_ExpiresSilentSessions(t *testing.T) {
	m := NewDirectPlayManager(50*time.Millisecond, testLogger())
	t.Cleanup(m.Shutdown)

	stale := m.Open(models.NewULID(), "alice")
	fresh := m.Open(models.NewULID(), "bob")

	// The fresh session keeps beating; the stale one goes silent.
	require.Eventually(t, func() bool {
		_ = m.Heartbeat(fresh.ID)
		return len(m.Sessions()) == 1
	}, 3*time.Second, 20*time.Millisecond, "stale session should expire")

	assert.ErrorIs(t, m.Heartbeat(stale.ID), ErrSessionNotFound)
	assert.NoError(t, m.Heartbeat(fresh.ID), "active session must survive")
}
