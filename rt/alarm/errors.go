package alarm

import "errors"

// ErrCorrupt is returned by Check when the queue fails its integrity walk.
var ErrCorrupt = errors.New("alarm: queue corrupt")
