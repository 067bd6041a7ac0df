// Package shutdown ties a command run to process termination signals.
//
// A Handler derives a context that is cancelled on SIGINT or SIGTERM and
// runs cleanup hooks when the run ends, whether it finished or was
// interrupted:
//
//	h := shutdown.NewHandler(ctx, 5*time.Second)
//	defer h.Close()
//	h.OnShutdown(flushMetrics)
//	err := run(h.Context())
package shutdown
