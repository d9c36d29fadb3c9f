package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/webhost-go/internal/infra/buildinfo"
	"github.com/yndnr/webhost-go/internal/infra/confloader"
	"github.com/yndnr/webhost-go/internal/infra/shutdown"
)

// reloadInterval spaces out reloads triggered by file events.
const reloadInterval = time.Second

// ServeCommand runs the listeners until SIGINT or SIGTERM. SIGHUP and
// changes to the configuration file reload the webserver settings.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP and HTTPS listeners (default)",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting webhost-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", flags.ConfigFile,
		"ssl_enabled", cfg.WebServer.SSLEnabled,
		"discovery", cfg.Discovery.Mode,
	)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	d := newDaemon(cfg, flags, log)
	d.start(ctx)

	sh := shutdown.NewHandler(cfg.WebServer.ShutdownTimeout + 5*time.Second)
	sh.SetLogger(log)
	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping listeners")
		cancel()
		return d.wait(ctx)
	})
	sh.OnReload(d.reload)

	if flags.ConfigFile != "" {
		w, err := watchConfig(flags.ConfigFile, d.reload, log)
		if err != nil {
			log.Warn("configuration file is not watched", "path", flags.ConfigFile, "error", err)
		} else {
			sh.OnShutdown(func(context.Context) error { return w.Stop() })
		}
	}

	go func() {
		<-c.Context.Done()
		sh.Trigger("context cancelled")
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := sh.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// watchConfig calls reload when the configuration file changes, at most
// once per reloadInterval.
func watchConfig(path string, reload func(), log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(reloadInterval), 1)
	w.OnChange(confloader.Throttle(limiter, func(p string) {
		log.Info("configuration file changed", "path", p)
		reload()
	}))
	w.StartAsync()
	return w, nil
}
