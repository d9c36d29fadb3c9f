package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webhost-go/internal/cli/connection"
	"github.com/yndnr/webhost-go/internal/cli/output"
	"github.com/yndnr/webhost-go/internal/infra/buildinfo"
	"github.com/yndnr/webhost-go/internal/infra/tlsroots"
	"github.com/yndnr/webhost-go/internal/server/discovery"
	"github.com/yndnr/webhost-go/internal/server/webserver"
)

// StatusCommand queries /status of a running server.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the listener state of a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Server address, e.g. localhost:8090 or https://localhost:8092",
				EnvVars: []string{"WEBHOST_SERVER"},
				Value:   fmt.Sprintf("localhost:%d", webserver.DefaultPort),
			},
			&cli.StringSliceFlag{
				Name:  "ca",
				Usage: "Trust this PEM certificate for https; builtin://server.crt trusts the bundled one",
			},
			&cli.BoolFlag{
				Name:    "insecure",
				Aliases: []string{"k"},
				Usage:   "Skip certificate verification for https",
			},
		},
		Action: status,
	}
}

// StatusReport mirrors the /status document.
type StatusReport struct {
	Build     buildinfo.Info             `json:"build" yaml:"build"`
	Instances []webserver.InstanceStatus `json:"instances" yaml:"instances"`
	Peers     []discovery.Peer           `json:"peers,omitempty" yaml:"peers,omitempty"`
}

// Table implements output.Tabular.
func (r StatusReport) Table() *output.Table {
	t := &output.Table{Headers: []string{"INSTANCE", "SECURE", "STATE", "PORT", "LAST ERROR"}}
	for _, in := range r.Instances {
		t.AddRow(in.Instance, in.Secure, in.State, in.Port, in.LastError)
	}
	for _, p := range r.Peers {
		t.AddRow("peer:"+p.Node+"@"+p.Addr, false, "discovered", p.Port, "")
	}
	return t
}

func status(c *cli.Context) error {
	var opts []connection.Option
	if cas := c.StringSlice("ca"); len(cas) > 0 {
		pool, err := tlsroots.FromFiles(cas...)
		if err != nil {
			return err
		}
		opts = append(opts, connection.WithRootCAs(pool.CertPool()))
	}
	if c.Bool("insecure") {
		opts = append(opts, connection.WithInsecure())
	}
	client := connection.NewHTTPClient(c.String("server"), opts...)

	ctx, cancel := context.WithTimeout(c.Context, connection.DefaultTimeout)
	defer cancel()

	var report StatusReport
	if err := client.GetJSON(ctx, "/status", &report); err != nil {
		return fmt.Errorf("query %s: %w", client.BaseURL(), err)
	}
	return render(c, report)
}
