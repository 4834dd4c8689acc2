package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySendToUserDeliversPayload(t *testing.T) {
	registry := NewRegistry()
	client := newClient(5, nil, ConnInfo{ConnID: "c1"})
	registry.Register(client)

	require.True(t, registry.SendToUser(5, []byte("hello")))

	select {
	case payload := <-client.send:
		assert.Equal(t, "hello", string(payload))
	default:
		t.Fatal("expected payload in send queue")
	}
}

func TestRegistrySendToOfflineUser(t *testing.T) {
	registry := NewRegistry()

	assert.False(t, registry.SendToUser(42, []byte("hello")))
}

func TestRegistryLastConnectWins(t *testing.T) {
	registry := NewRegistry()
	first := newClient(5, nil, ConnInfo{ConnID: "first"})
	second := newClient(5, nil, ConnInfo{ConnID: "second"})

	registry.Register(first)
	registry.Register(second)

	require.Len(t, registry.clients, 1)
	require.True(t, registry.SendToUser(5, []byte("hi")))

	select {
	case payload := <-second.send:
		assert.Equal(t, "hi", string(payload))
	default:
		t.Fatal("expected delivery to the second connection")
	}

	select {
	case <-first.send:
		t.Fatal("displaced connection must not receive new frames")
	default:
	}
}

func TestRegistryUnregisterIgnoresDisplacedClient(t *testing.T) {
	registry := NewRegistry()
	first := newClient(5, nil, ConnInfo{ConnID: "first"})
	second := newClient(5, nil, ConnInfo{ConnID: "second"})

	registry.Register(first)
	registry.Register(second)

	// The displaced connection's cleanup runs late; it must not evict the
	// replacement.
	registry.Unregister(first)
	assert.True(t, registry.Online(5))

	registry.Unregister(second)
	assert.False(t, registry.Online(5))
	assert.False(t, registry.SendToUser(5, []byte("hi")))
}

func TestRegistryUnregisterAbsentUserIsNoop(t *testing.T) {
	registry := NewRegistry()

	registry.Unregister(newClient(9, nil, ConnInfo{}))
	assert.False(t, registry.Online(9))
}

func TestRegistryBroadcastSkipsFullQueues(t *testing.T) {
	registry := NewRegistry()
	stalled := newClient(1, nil, ConnInfo{ConnID: "stalled"})
	healthy := newClient(2, nil, ConnInfo{ConnID: "healthy"})
	registry.Register(stalled)
	registry.Register(healthy)

	for i := 0; i < sendQueueSize; i++ {
		require.True(t, stalled.Enqueue([]byte("fill")))
	}

	// Must not block and must still reach the healthy client.
	registry.Broadcast([]byte("notice"))

	require.Len(t, healthy.send, 1)
	assert.Equal(t, "notice", string(<-healthy.send))
	assert.Len(t, stalled.send, sendQueueSize)
}

func TestClientEnqueueDropsOnBackpressure(t *testing.T) {
	client := newClient(7, nil, ConnInfo{})

	for i := 0; i < sendQueueSize; i++ {
		require.True(t, client.Enqueue([]byte("x")))
	}
	assert.False(t, client.Enqueue([]byte("overflow")))
}
