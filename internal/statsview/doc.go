// Package statsview serves host runtime statistics over HTTP while a
// System runs. It is compiled in only with the statsview build tag:
//
//	go build -tags statsview ./...
//
// Charts are then at http://localhost:12600/debug/statsview and pprof at
// http://localhost:12600/debug/pprof/. Without the tag Launch does nothing
// and Available reports false.
package statsview
