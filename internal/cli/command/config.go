package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webhost-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration inspection",
		Subcommands: []*cli.Command{
			{
				Name:   "print",
				Usage:  "Print the effective configuration with secrets masked",
				Action: configPrint,
			},
			{
				Name:   "validate",
				Usage:  "Load and verify the configuration",
				Action: configValidate,
			},
		},
	}
}

func configPrint(c *cli.Context) error {
	cfg, err := loadConfig(ParseGlobalFlags(c))
	if err != nil {
		return err
	}
	return render(c, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	if _, err := loadConfig(flags); err != nil {
		return err
	}
	source := flags.ConfigFile
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(c.App.Writer, "configuration is valid (%s)\n", source)
	return nil
}
