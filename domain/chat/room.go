package chat

import "strings"

// RoomKey identifies a chat scope. The zero value is the implicit global scope.
type RoomKey string

const Global RoomKey = ""

func NewRoomKey(room string) RoomKey {
	return RoomKey(strings.TrimSpace(room))
}

func (r RoomKey) IsGlobal() bool {
	return r == Global
}

func (r RoomKey) String() string {
	if r.IsGlobal() {
		return "global"
	}
	return string(r)
}
