package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func newTestClient(t *testing.T, stock map[int]int) *CartServiceClient {
	client, _, _ := startTestServer(t, stock)
	return client
}

func startTestServer(t *testing.T, stock map[int]int) (*CartServiceClient, *grpc.Server, *GRPCHandler) {
	t.Helper()
	svc, _, _ := newTestService(t, stock)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	h := NewGRPCHandler(svc)
	RegisterCartServiceServer(server, h)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewCartServiceClient(conn), server, h
}

func TestGRPC_CartOperations(t *testing.T) {
	client := newTestClient(t, map[int]int{3: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := client.GetCart(ctx)
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Empty(t, reply.Items)

	reply, err = client.AddItem(ctx, 3)
	require.NoError(t, err)
	require.True(t, reply.Success)
	require.Len(t, reply.Items, 1)
	assert.Equal(t, "Tenis", reply.Items[0].Title)
	assert.Equal(t, "100.50", reply.Subtotal)

	reply, err = client.SetAmount(ctx, 3, 2)
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, 2, reply.Count)

	reply, err = client.RemoveItem(ctx, 3)
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, 1, reply.Count)
}

func TestGRPC_RejectedMutation(t *testing.T) {
	client := newTestClient(t, map[int]int{3: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.AddItem(ctx, 3)
	require.NoError(t, err)

	reply, err := client.SetAmount(ctx, 3, 5)
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Equal(t, "requested quantity out of stock", reply.Message)
	assert.Equal(t, 1, reply.Count)

	reply, err = client.RemoveItem(ctx, 8)
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Equal(t, "error removing product", reply.Message)
}

func TestGRPC_WatchCart(t *testing.T) {
	client := newTestClient(t, map[int]int{3: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watcher, err := client.WatchCart(ctx)
	require.NoError(t, err)

	initial, err := watcher.Recv()
	require.NoError(t, err)
	assert.Equal(t, 0, initial.Count)

	_, err = client.AddItem(ctx, 3)
	require.NoError(t, err)
	_, err = client.AddItem(ctx, 3)
	require.NoError(t, err)

	first, err := watcher.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)

	second, err := watcher.Recv()
	require.NoError(t, err)
	assert.Equal(t, 2, second.Count)
	assert.Equal(t, "201.00", second.Subtotal)
}

func openWatcher(t *testing.T, ctx context.Context, client *CartServiceClient) *CartWatcher {
	t.Helper()
	watcher, err := client.WatchCart(ctx)
	require.NoError(t, err)
	_, err = watcher.Recv()
	require.NoError(t, err)
	return watcher
}

func TestGRPC_CloseEndsWatchersSoServerStops(t *testing.T) {
	client, server, h := startTestServer(t, map[int]int{3: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watcher := openWatcher(t, ctx, client)

	h.Close()
	h.Close()

	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("GracefulStop blocked by an open WatchCart stream")
	}

	_, err := watcher.Recv()
	assert.Error(t, err)
}

func TestStopGRPC_ForcesStopAfterDeadline(t *testing.T) {
	client, server, _ := startTestServer(t, map[int]int{3: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	openWatcher(t, ctx, client)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer stopCancel()

	done := make(chan struct{})
	go func() {
		StopGRPC(stopCtx, server)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StopGRPC did not return after its deadline")
	}
}
