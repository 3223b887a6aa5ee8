package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-engine/pkg/models"
)

func newStubClient(h *Hub, buffer int) *Client {
	return &Client{
		hub:           h,
		send:          make(chan []byte, buffer),
		id:            "stub-client",
		subscriptions: make(map[string]bool),
	}
}

func subscribeClient(h *Hub, c *Client, portfolioID string) {
	c.subscriptions[portfolioID] = true
	h.clients[c] = true
	if h.subscriptions[portfolioID] == nil {
		h.subscriptions[portfolioID] = make(map[*Client]bool)
	}
	h.subscriptions[portfolioID][c] = true
}

func snapshotFor(id string) *models.RiskSnapshot {
	return &models.RiskSnapshot{PortfolioID: id, UserID: "u1"}
}

func TestDeliverReachesSubscribersOnly(t *testing.T) {
	h := NewHub(nil)
	c := newStubClient(h, 4)
	subscribeClient(h, c, "p1")

	h.deliver(snapshotFor("p1"))
	require.Len(t, c.send, 1)

	h.deliver(snapshotFor("p2"))
	assert.Len(t, c.send, 1, "snapshot for an unwatched portfolio must not be queued")
}

func TestDeliverEvictsSlowConsumer(t *testing.T) {
	h := NewHub(nil)
	c := newStubClient(h, 1)
	subscribeClient(h, c, "p1")

	h.deliver(snapshotFor("p1")) // fills the buffer
	h.deliver(snapshotFor("p1")) // overflows, evicting the client

	assert.NotContains(t, h.clients, c)
	assert.Empty(t, h.subscriptions, "eviction must clear the subscription index")

	// A later snapshot for the same portfolio and a late write from the
	// client side must both be no-ops, never a send on a closed channel.
	h.deliver(snapshotFor("p1"))
	assert.False(t, c.trySend([]byte("late")))
}

func TestDropIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	c := newStubClient(h, 1)
	subscribeClient(h, c, "p1")

	h.drop(c)
	h.drop(c)

	assert.NotContains(t, h.clients, c)
	assert.False(t, c.trySend([]byte("x")))
}

func TestClientCountReported(t *testing.T) {
	var count int
	h := NewHub(func(n int) { count = n })
	c := newStubClient(h, 1)
	subscribeClient(h, c, "p1")

	h.drop(c)
	assert.Equal(t, 0, count)
}
