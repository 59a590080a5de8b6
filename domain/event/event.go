// Package event defines the live-channel events exchanged with clients.
// Every frame is an Envelope: {"event": <name>, "data": <payload>}.
package event

import (
	"encoding/json"
)

type Name string

// Client to server.
const (
	JoinRoom      Name = "room:join"
	LeaveRoom     Name = "room:leave"
	SendMessage   Name = "message:send"
	EditMessage   Name = "message:edit"
	DeleteMessage Name = "message:delete"
)

// Server to client.
const (
	MessageCreated Name = "message:new"
	MessageEdited  Name = "message:edited"
	MessageDeleted Name = "message:deleted"
	MemberJoined   Name = "room:member_joined"
	RoomHistory    Name = "room:history"
	Error          Name = "error"
)

// Envelope is an outbound frame.
type Envelope struct {
	Event Name `json:"event"`
	Data  any  `json:"data,omitempty"`
}

// Inbound is a frame read from a client; Data is decoded once the event name is known.
type Inbound struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func New(name Name, data any) Envelope {
	return Envelope{Event: name, Data: data}
}
