package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runner(t *testing.T, status int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatchFirstAcceptingRunner(t *testing.T) {
	var bad, good atomic.Int32
	reject := runner(t, http.StatusInternalServerError, &bad)
	accept := runner(t, http.StatusOK, &good)

	pool := NewPool(nil, reject.URL, accept.URL)
	ok := pool.Dispatch(context.Background(), "/join", map[string]string{"room_url": "https://rooms.test/a"})

	assert.True(t, ok)
	assert.EqualValues(t, 1, bad.Load())
	assert.EqualValues(t, 1, good.Load())
	assert.Zero(t, pool.Len(), "tried candidates are consumed")
}

func TestDispatchEmptyPool(t *testing.T) {
	pool := NewPool(nil)
	assert.False(t, pool.Dispatch(context.Background(), "/join", map[string]string{}))
}

func TestDispatchExhaustsAllRejecting(t *testing.T) {
	var hits atomic.Int32
	r1 := runner(t, http.StatusBadGateway, &hits)
	r2 := runner(t, http.StatusBadGateway, &hits)

	pool := NewPool(nil, r1.URL, r2.URL)
	ok := pool.Dispatch(context.Background(), "/join", map[string]string{})

	assert.False(t, ok, "false once every candidate is gone")
	assert.EqualValues(t, 2, hits.Load())
	assert.Zero(t, pool.Len())
}

func TestAddRefillsPool(t *testing.T) {
	var good atomic.Int32
	accept := runner(t, http.StatusAccepted, &good)

	pool := NewPool(nil)
	require.False(t, pool.Dispatch(context.Background(), "/join", map[string]string{}))

	pool.Add(accept.URL)
	assert.True(t, pool.Dispatch(context.Background(), "/join", map[string]string{}))
	assert.EqualValues(t, 1, good.Load())
}
