// Package shutdown coordinates process termination for webhost-server.
//
// A Handler waits for SIGINT, SIGTERM or an explicit Trigger and then runs
// the registered hooks, newest first, under one shared timeout. SIGHUP runs
// the reload hooks instead and keeps the process alive.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return srv.Stop(ctx) })
//	h.OnReload(reloadConfig)
//	_ = h.Wait()
package shutdown
