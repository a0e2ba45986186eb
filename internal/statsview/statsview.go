//go:build statsview

package statsview

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Address is the listen address of the stats server.
const Address = "localhost:12600"

const url = "/debug/statsview"

// Launch starts the stats server on a new goroutine and returns a function
// that stops it.
func Launch(log *slog.Logger) func() {
	viewer.SetConfiguration(viewer.WithAddr(Address))
	mgr := statsview.New()
	go mgr.Start()
	log.Info("stats server available", "url", "http://"+Address+url)
	return mgr.Stop
}

// Available reports whether the stats server is compiled in.
func Available() bool { return true }
