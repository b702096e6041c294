package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	publisher "github.com/JakeFAU/realtime-site-auditor/internal/publisher/pubsub"
)

func newClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishSendsJSONWithAttributes(t *testing.T) {
	ctx := context.Background()
	client, srv := newClient(t)
	_, err := client.CreateTopic(ctx, "audit-runs")
	require.NoError(t, err)

	pub := publisher.New(client, map[string]string{"source": "siteauditor"})
	defer pub.Close(zap.NewNop())

	id, err := pub.Publish(ctx, "audit-runs", map[string]any{"run_id": "run-1", "succeeded": 2})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	var msgs []*pstest.Message
	require.Eventually(t, func() bool {
		msgs = srv.Messages()
		return len(msgs) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "siteauditor", msgs[0].Attributes["source"])
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
}

func TestPublishErrors(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	pub := publisher.New(client, nil)
	defer pub.Close(nil)

	_, err := pub.Publish(ctx, "", "x")
	require.Error(t, err)

	_, err = pub.Publish(ctx, "audit-runs", func() {})
	require.Error(t, err)

	_, err = pub.Publish(ctx, "missing-topic", "x")
	require.Error(t, err)

	var nilPub *publisher.Publisher
	_, err = nilPub.Publish(ctx, "t", "x")
	require.Error(t, err)
}
