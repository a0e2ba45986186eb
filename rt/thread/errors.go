package thread

import "errors"

// ErrNotJoinable indicates a join on a detached thread or one whose exit
// value was already consumed.
var ErrNotJoinable = errors.New("thread: not joinable")
