package command

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webhost-go/internal/cli/output"
	"github.com/yndnr/webhost-go/internal/infra/portprobe"
	"github.com/yndnr/webhost-go/internal/telemetry/logger"
)

// ProbePortCommand reports the port a listener would bind for a request.
func ProbePortCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe-port",
		Usage:     "Show the first free port at or above PORT",
		ArgsUsage: "PORT",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "max-port",
				Usage: "Highest port to try",
				Value: 65535,
			},
		},
		Action: probePort,
	}
}

// PortProbe is the result of probe-port.
type PortProbe struct {
	Requested uint16 `json:"requested" yaml:"requested"`
	Port      uint16 `json:"port" yaml:"port"`
	Adjusted  bool   `json:"adjusted" yaml:"adjusted"`
}

// Table implements output.Tabular.
func (p PortProbe) Table() *output.Table {
	t := &output.Table{Headers: []string{"REQUESTED", "PORT", "ADJUSTED"}}
	t.AddRow(p.Requested, p.Port, p.Adjusted)
	return t
}

func probePort(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("probe-port requires exactly one PORT argument")
	}
	requested, err := parsePort(c.Args().First())
	if err != nil {
		return err
	}
	maxPort := c.Uint("max-port")
	if maxPort == 0 || maxPort > 65535 {
		return fmt.Errorf("invalid --max-port %d", maxPort)
	}

	resolver := portprobe.New(
		portprobe.WithMaxPort(uint16(maxPort)),
		portprobe.WithLogger(logger.Discard()),
	)
	port, adjusted, err := resolver.Resolve(requested)
	if err != nil {
		return err
	}
	return render(c, PortProbe{Requested: requested, Port: port, Adjusted: adjusted})
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: must be 0-65535", s)
	}
	return uint16(n), nil
}
