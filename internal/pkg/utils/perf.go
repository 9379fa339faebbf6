package utils

import (
	"fmt"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"

	_ "net/http/pprof"
)

// RunPerfEndpoint serves the default pprof mux when debug.port is configured.
// Blocks, meant to be started in a goroutine.
func RunPerfEndpoint() {
	port := goapp.Config.GetInt("debug.port")
	if port <= 0 {
		goapp.Log.Info().Msg("no debug.port - skip pprof endpoint")
		return
	}
	goapp.Log.Info().Int("port", port).Msg("starting pprof endpoint")
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		goapp.Log.Error().Err(err).Msg("can't serve pprof endpoint")
	}
}
