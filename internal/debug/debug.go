// Package debug provides handler for debugging the application.
package debug

import (
	"expvar"
	"net/http"
	"net/http/pprof"
)

// Register returns a mux with the pprof and expvar endpoints plus the
// prometheus metrics on /metrics.
func Register(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/metrics", metrics)

	return mux
}
