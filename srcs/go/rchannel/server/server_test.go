package server

import (
	"context"
	"testing"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/client"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingAndCollective(t *testing.T) {
	const token = 42
	a := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 31501}
	b := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 31502}

	router := handler.NewRouter()
	srv := New(b, router, token)
	require.NoError(t, srv.Start())
	defer srv.Close()

	c := client.New(a, token)
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, ok := c.Wait(ctx, b)
	require.True(t, ok)

	require.NoError(t, c.Send(b.WithName("x"), []byte("hello"), connection.ConnCollective, connection.NoFlag))
	m := connection.Message{Length: 5, Data: make([]byte, 5)}
	require.NoError(t, router.Collective.RecvInto(ctx, a.WithName("x"), m))
	assert.Equal(t, "hello", string(m.Data))

	short, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	assert.ErrorIs(t, router.Collective.RecvInto(short, a.WithName("y"), m), context.DeadlineExceeded)
}

func TestTokenMismatch(t *testing.T) {
	a := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 31503}
	b := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 31504}
	srv := New(b, handler.NewRouter(), 1)
	require.NoError(t, srv.Start())
	defer srv.Close()

	_, err := connection.Open(b, a, connection.ConnCollective, 2)
	assert.Error(t, err)
}

func TestWaitTimeout(t *testing.T) {
	a := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 31505}
	nobody := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 31506}
	c := client.New(a, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, ok := c.Wait(ctx, nobody)
	assert.False(t, ok)
}
