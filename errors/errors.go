package errors

import "fmt"

var (
	ErrNotConnected    = fmt.Errorf("channel is not connected")
	ErrNoActiveRoom    = fmt.Errorf("no active room selected")
	ErrEmptyMessage    = fmt.Errorf("message content is empty")
	ErrUnknownRoomKind = fmt.Errorf("unknown room kind")
	ErrSelfDirectChat  = fmt.Errorf("cannot start a direct chat with yourself")
	ErrNoToken         = fmt.Errorf("no credential token available")
)
