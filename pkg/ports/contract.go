package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore
// implementation adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		st := flow.NewState(sessionID)
		st.OnComplete = "/done"
		st.Set("email", "user@example.com")
		st.Set("attempts", 2)
		st.History = append(st.History, flow.HistoryEntry{Position: "onboarding/register"})

		err := store.Save(ctx, sessionID, st)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, "/done", loaded.OnComplete)
		assert.Equal(t, "user@example.com", loaded.GetString("email"))
		// JSON persistence may degrade ints to float64; only require presence.
		v, ok := loaded.Get("attempts")
		assert.True(t, ok)
		assert.NotNil(t, v)
		require.Len(t, loaded.History, 1)
		assert.Equal(t, "onboarding/register", loaded.History[0].Position)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, flow.ErrSessionNotFound)
	})

	t.Run("Saved state is isolated from later mutation", func(t *testing.T) {
		st := flow.NewState(sessionID)
		st.Set("name", "before")
		require.NoError(t, store.Save(ctx, sessionID, st))

		st.Set("name", "after")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "before", loaded.GetString("name"))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, flow.NewState(sessionID)))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, flow.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, flow.NewState(id1))
		_ = store.Save(ctx, id2, flow.NewState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
