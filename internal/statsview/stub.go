//go:build !statsview

package statsview

import "log/slog"

// Launch does nothing without the statsview build tag.
func Launch(*slog.Logger) func() { return func() {} }

// Available reports whether the stats server is compiled in.
func Available() bool { return false }
