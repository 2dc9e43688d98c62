//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Metadata keys carrying the caller identity on every RPC.
const (
	MetadataHostname = "x-catpoint-hostname"
	MetadataUsername = "x-catpoint-username"
)

// Actor identifies who issued a command, for the server audit log.
type Actor struct {
	// Hostname is the machine the command came from.
	Hostname string
	// Username is the operating system user that ran the command.
	Username string
}

// String renders the actor as user@host.
func (a Actor) String() string {
	return a.Username + "@" + a.Hostname
}

// DetectActor gathers host and user information for the audit trail.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// AppendActor attaches the actor to the outgoing RPC metadata.
func AppendActor(ctx context.Context, actor *Actor) context.Context {
	if actor == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx,
		MetadataHostname, actor.Hostname,
		MetadataUsername, actor.Username)
}

// ActorFromContext reads the actor from incoming RPC metadata.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, false
	}

	actor := &Actor{
		Hostname: first(md.Get(MetadataHostname)),
		Username: first(md.Get(MetadataUsername)),
	}

	if actor.Hostname == "" && actor.Username == "" {
		return nil, false
	}

	return actor, true
}

// first returns the first non-blank value.
func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}
