package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webhost-go/internal/cli/output"
	"github.com/yndnr/webhost-go/internal/infra/buildinfo"
)

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			if ParseGlobalFlags(c).Output == output.FormatTable {
				fmt.Fprintf(c.App.Writer, "webhost-server %s\n", buildinfo.String())
				return nil
			}
			return render(c, buildinfo.Get())
		},
	}
}
