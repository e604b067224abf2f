package presence

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/skelid/internal/monitoring"
)

func TestConnectRedis_EmptyAddr(t *testing.T) {
	assert.Nil(t, ConnectRedis("", ""))
}

func TestRedisMirror_SetsKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := ConnectRedis(mr.Addr(), "")
	defer client.Close()

	tr := NewTracker()
	mirror := NewRedisMirror(client, "")
	mirror.Attach(tr)
	assert.Equal(t, DefaultRedisKey, mirror.Key())

	tr.Set("alice")
	mirror.Wait()

	got, err := mr.Get(DefaultRedisKey)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestRedisMirror_Publishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := ConnectRedis(mr.Addr(), "")
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "presence:test")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err, "subscription should be confirmed")

	mirror := NewRedisMirror(client, "presence:test")
	change := Change{Name: "bob", Previous: "alice", Time: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, mirror.Publish(ctx, change))

	select {
	case msg := <-sub.Channel():
		var got Change
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "bob", got.Name)
		assert.Equal(t, "alice", got.Previous)
		assert.True(t, got.Time.Equal(change.Time))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for published change")
	}
}

func TestRedisMirror_ErrorsAreLoggedNotFatal(t *testing.T) {
	mr := miniredis.RunT(t)
	client := ConnectRedis(mr.Addr(), "")
	defer client.Close()
	mr.Close()

	tr := NewTracker()
	mirror := NewRedisMirror(client, "")
	mirror.Attach(tr)

	assert.True(t, tr.Set("carol"), "tracker should still change when redis is down")
	assert.Equal(t, "carol", tr.Name())
	mirror.Wait()
}

func TestRedisMirror_SetDoesNotWaitForRedis(t *testing.T) {
	prev := monitoring.SetLogger(nil)
	defer monitoring.SetLogger(prev)

	// Nothing answers on this listener, so every write runs into the
	// mirror's timeout.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	client := ConnectRedis(ln.Addr().String(), "")
	defer client.Close()

	tr := NewTracker()
	mirror := NewRedisMirror(client, "")
	mirror.timeout = 300 * time.Millisecond
	mirror.Attach(tr)

	start := time.Now()
	assert.True(t, tr.Set("dave"))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "Set should return before the write times out")
	mirror.Wait()
}

func TestRedisMirror_LastChangeWins(t *testing.T) {
	mr := miniredis.RunT(t)
	client := ConnectRedis(mr.Addr(), "")
	defer client.Close()

	tr := NewTracker()
	mirror := NewRedisMirror(client, "")
	mirror.Attach(tr)

	for _, name := range []string{"alice", "bob", "", "carol"} {
		tr.Set(name)
	}
	mirror.Wait()

	got, err := mr.Get(DefaultRedisKey)
	require.NoError(t, err)
	assert.Equal(t, "carol", got)
}
