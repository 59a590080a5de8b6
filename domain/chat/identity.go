// Package chat contains the core concepts of the messaging system:
// identities, messages, rooms, sessions and the commands that mutate messages.
// No runtime, network or storage logic belongs here.
package chat

// Identity is a verified user as returned by the identity verifier.
// It is immutable for the life of a connection.
type Identity struct {
	UserID      string `json:"uid"`
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// AuthorName is the name snapshotted on messages created by this identity.
func (i Identity) AuthorName() string {
	switch {
	case i.DisplayName != "":
		return i.DisplayName
	case i.Email != "":
		return i.Email
	default:
		return "User"
	}
}
