package chat

import (
	"chatchat/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_Lifecycle(t *testing.T) {
	req := require.New(t)
	session := NewSession("s-1")
	req.Equal(Unauthenticated, session.State())

	// An empty identity is refused
	req.ErrorIs(session.Authenticate(Identity{}), errors.ErrSessionState)

	req.NoError(session.Authenticate(Identity{UserID: "alice"}))
	identity, ready := session.Identity()
	req.True(ready)
	req.Equal("alice", identity.UserID)

	// A second authentication is refused
	req.ErrorIs(session.Authenticate(Identity{UserID: "bob"}), errors.ErrSessionState)

	req.True(session.Close())
	req.False(session.Close())
	req.Equal(Closed, session.State())

	// Nothing re-enters Unauthenticated
	req.ErrorIs(session.Authenticate(Identity{UserID: "alice"}), errors.ErrSessionState)
	_, ready = session.Identity()
	req.False(ready)
}

func TestIdentity_AuthorName(t *testing.T) {
	req := require.New(t)
	req.Equal("Alice", Identity{UserID: "a", DisplayName: "Alice", Email: "a@x.io"}.AuthorName())
	req.Equal("a@x.io", Identity{UserID: "a", Email: "a@x.io"}.AuthorName())
	req.Equal("User", Identity{UserID: "a"}.AuthorName())
	req.Equal("global", Global.String())
	req.Equal(RoomKey("general"), NewRoomKey("  general "))
}
