//go:build integration

package publish

import (
	"context"
	"testing"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishesToGraphStream(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	js, err := tc.Client.JetStream()
	require.NoError(t, err)
	require.NoError(t, EnsureStream(ctx, js))
	require.NoError(t, EnsureStream(ctx, js), "existing stream is accepted")

	p := NewPublisher(tc.Client, WithOrg("acme"))
	require.True(t, p.Enabled())

	n, err := p.PublishSummary(ctx, sampleGraph(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = p.PublishDocument(ctx, &DocumentPayload{
		RunID:     "run-1",
		Format:    "turtle",
		Patterns:  2,
		Document:  "@prefix sum: <http://example.org/vocab#> .\n",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	stream, err := js.Stream(ctx, StreamName)
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), info.State.Msgs)
}
