//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

// TestDetectActor ensures hostname and username are detected and non-empty.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	a, err := DetectActor()
	require.NoError(t, err)
	require.NotEmpty(t, a.Hostname)
	require.NotEmpty(t, a.Username)
	require.Equal(t, a.Username+"@"+a.Hostname, a.String())
}

// TestActorMetadata_Roundtrip moves the actor from outgoing to incoming metadata.
func TestActorMetadata_Roundtrip(t *testing.T) {
	t.Parallel()

	want := &Actor{Hostname: "kitchen-pi", Username: "o.shokin"}

	outgoing := AppendActor(context.Background(), want)

	md, ok := metadata.FromOutgoingContext(outgoing)
	require.True(t, ok)

	incoming := metadata.NewIncomingContext(context.Background(), md)

	got, ok := ActorFromContext(incoming)
	require.True(t, ok)
	require.Equal(t, want, got)
}

// TestActorFromContext_Missing reports absent or blank metadata.
func TestActorFromContext_Missing(t *testing.T) {
	t.Parallel()

	_, ok := ActorFromContext(context.Background())
	require.False(t, ok)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataHostname, "  "))

	_, ok = ActorFromContext(ctx)
	require.False(t, ok)

	require.Equal(t, context.Background(), AppendActor(context.Background(), nil))
}
