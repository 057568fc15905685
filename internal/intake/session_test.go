package intake

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.now = func() time.Time { return now }

	ctrl := NewController(GeneralFlow(), &fakeLedger{}, nil, time.Second)
	id := store.Create(ctrl)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Same(t, ctrl, got)

	_, err = store.Get(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now = now.Add(50 * time.Second)
	_, err = store.Get(id)
	require.NoError(t, err, "access refreshes the idle timer")

	now = now.Add(61 * time.Second)
	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Create(NewController(GeneralFlow(), &fakeLedger{}, nil, time.Second))
	now = now.Add(30 * time.Second)
	kept := store.Create(NewController(CampaignFlow(1), &fakeLedger{}, nil, time.Second))

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, store.Sweep())
	_, err := store.Get(kept)
	assert.NoError(t, err)

	store.Delete(kept)
	assert.Equal(t, 0, store.Len())
}
