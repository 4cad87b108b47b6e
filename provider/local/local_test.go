package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/provider"
)

func TestTransportPIDStablePerRoom(t *testing.T) {
	tr := NewTransport(nil, nil)
	ctx := context.Background()

	pid1, err := tr.Join(ctx, "https://rooms.test/a", "")
	require.NoError(t, err)
	pid2, err := tr.Join(ctx, "https://rooms.test/a", "")
	require.NoError(t, err)
	assert.Equal(t, pid1, pid2)

	other, err := tr.Join(ctx, "https://rooms.test/b", "")
	require.NoError(t, err)
	assert.NotEqual(t, pid1, other)

	// Leaving releases the pid; the next join gets a fresh one.
	require.NoError(t, tr.Leave(ctx, "https://rooms.test/a"))
	pid3, err := tr.Join(ctx, "https://rooms.test/a", "")
	require.NoError(t, err)
	assert.NotEqual(t, pid1, pid3)
}

func TestTransportAppMessageTap(t *testing.T) {
	var got []byte
	tr := NewTransport(nil, func(_ string, payload []byte) { got = payload })

	require.NoError(t, tr.SendAppMessage(context.Background(), "https://rooms.test/a", []byte(`{"seq":1}`)))
	assert.Equal(t, `{"seq":1}`, string(got))
}

func TestStoreSpriteFallback(t *testing.T) {
	store := NewStore(api.Personality{ID: "pr-1", Name: "Fern", Sprite: "fern"})
	ctx := context.Background()

	seeded, err := store.PersonalityBySprite(ctx, "fern")
	require.NoError(t, err)
	assert.Equal(t, "pr-1", seeded.ID)

	generated, err := store.PersonalityBySprite(ctx, "moss")
	require.NoError(t, err)
	assert.Equal(t, "sprite-moss", generated.ID)
	assert.Equal(t, "moss", generated.Sprite)

	_, err = store.Personality(ctx, "nope")
	assert.Error(t, err)
}

func TestStoreProfiles(t *testing.T) {
	store := NewStore()
	store.AddProfile(provider.Profile{TenantID: "t1", UserID: "u1", Name: "Alice"})

	p, err := store.Profile(context.Background(), "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)

	_, err = store.Profile(context.Background(), "t1", "u2")
	assert.Error(t, err)
}
