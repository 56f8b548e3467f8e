package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBindAndSecondaryIndex(t *testing.T) {
	r := newRegistry()

	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}
	r.add(c1)
	r.add(c2)

	assert.False(t, r.isOnline("a@x.com"), "unbound connections carry no identity")

	require.NotNil(t, r.bind("c1", "a@x.com", "Alice", "av"))
	require.NotNil(t, r.bind("c2", "a@x.com", "Alice", "av"))

	assert.True(t, r.isOnline("a@x.com"))
	assert.Equal(t, []string{"a@x.com"}, r.onlineEmails())

	name, avatar, ok := r.identity("a@x.com")
	require.True(t, ok)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, "av", avatar)
}

func TestRegistryRemoveReportsLastConnection(t *testing.T) {
	r := newRegistry()
	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}
	r.add(c1)
	r.add(c2)
	r.bind("c1", "a@x.com", "Alice", "")
	r.bind("c2", "a@x.com", "Alice", "")

	s, wasLast := r.remove("c1")
	require.NotNil(t, s)
	assert.False(t, wasLast)
	assert.True(t, r.isOnline("a@x.com"))

	s, wasLast = r.remove("c2")
	require.NotNil(t, s)
	assert.True(t, wasLast)
	assert.False(t, r.isOnline("a@x.com"))
	assert.Empty(t, r.onlineEmails())
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := newRegistry()
	c := &fakeConn{id: "c1"}
	r.add(c)
	r.bind("c1", "a@x.com", "Alice", "")

	s, wasLast := r.remove("c1")
	require.NotNil(t, s)
	assert.True(t, wasLast)

	s, wasLast = r.remove("c1")
	assert.Nil(t, s)
	assert.False(t, wasLast)
}

func TestRegistryRebindReindexesConnection(t *testing.T) {
	r := newRegistry()
	c := &fakeConn{id: "c1"}
	r.add(c)
	r.bind("c1", "a@x.com", "Alice", "")
	r.bind("c1", "b@x.com", "Bob", "")

	assert.False(t, r.isOnline("a@x.com"))
	assert.True(t, r.isOnline("b@x.com"))
}

func TestRegistryBindUnknownConnection(t *testing.T) {
	r := newRegistry()
	assert.Nil(t, r.bind("ghost", "a@x.com", "Alice", ""))
}

func TestRegistryBroadcastVariants(t *testing.T) {
	r := newRegistry()
	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}
	c3 := &fakeConn{id: "c3"}
	r.add(c1)
	r.add(c2)
	r.add(c3)
	r.bind("c1", "a@x.com", "Alice", "")
	r.bind("c2", "b@x.com", "Bob", "")
	r.bind("c3", "c@x.com", "Cara", "")

	r.broadcast("ev", "all")
	assert.Equal(t, 1, c1.count("ev"))
	assert.Equal(t, 1, c2.count("ev"))
	assert.Equal(t, 1, c3.count("ev"))

	r.broadcastExcept("c1", "ev2", "others")
	assert.Zero(t, c1.count("ev2"))
	assert.Equal(t, 1, c2.count("ev2"))

	r.unicast("c2", "ev3", "one")
	assert.Equal(t, 1, c2.count("ev3"))
	assert.Zero(t, c3.count("ev3"))
	r.unicast("ghost", "ev3", "one") // no panic

	r.sendToEmails([]string{"b@x.com", "c@x.com"}, "c3", "ev4", "pair")
	assert.Equal(t, 1, c2.count("ev4"))
	assert.Zero(t, c3.count("ev4"), "except ID is skipped")
	assert.Zero(t, c1.count("ev4"))
}
