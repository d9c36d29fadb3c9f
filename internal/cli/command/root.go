package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webhost-go/internal/cli/output"
	"github.com/yndnr/webhost-go/internal/infra/buildinfo"
	"github.com/yndnr/webhost-go/internal/server/config"
	"github.com/yndnr/webhost-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "webhost-server",
		Usage:   "Serve a document root over HTTP and HTTPS",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ServeCommand(),
			ConfigCommand(),
			ProbePortCommand(),
			CheckTLSCommand(),
			StatusCommand(),
			VersionCommand(),
		},
		Action: serve,
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML configuration file",
			EnvVars: []string{"WEBHOST_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "env-file",
			Usage:   "Path to a .env file read before the environment",
			EnvVars: []string{"WEBHOST_ENV_FILE"},
			Value:   ".env",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Override the log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Override the log format: json, text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	EnvFile    string
	LogLevel   string
	LogFormat  string
	Output     output.Format
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		EnvFile:    c.String("env-file"),
		LogLevel:   c.String("log-level"),
		LogFormat:  c.String("log-format"),
		Output:     format,
	}
}

// Source returns the configuration source named by the flags.
func (g *GlobalFlags) Source() config.Source {
	src := config.Source{File: g.ConfigFile, DotEnv: g.EnvFile, Overrides: map[string]any{}}
	if g.LogLevel != "" {
		src.Overrides["log.level"] = g.LogLevel
	}
	if g.LogFormat != "" {
		src.Overrides["log.format"] = g.LogFormat
	}
	return src
}

// loadConfig reads and verifies the configuration, command line log
// flags included.
func loadConfig(g *GlobalFlags) (*config.ServerConfig, error) {
	cfg, err := config.Load(g.Source())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger writing to stderr.
func newLogger(cfg *config.ServerConfig) (*slog.Logger, error) {
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// render writes data to the app's writer in the selected format.
func render(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(c.App.Writer, data)
}
