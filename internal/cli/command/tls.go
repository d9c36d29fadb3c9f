package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/webhost-go/internal/cli/output"
	"github.com/yndnr/webhost-go/internal/infra/tlsmaterial"
	"github.com/yndnr/webhost-go/internal/telemetry/logger"
)

// CheckTLSCommand loads a key pair the way the secure listener does.
func CheckTLSCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-tls",
		Usage: "Load and validate a TLS key pair",
		Description: "Flags default to the configured webserver.keyPath, webserver.crtPath and\n" +
			"webserver.keyPassPhrase. Missing files fall back to the built-in pair.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Usage: "PEM private key path"},
			&cli.StringFlag{Name: "crt", Usage: "PEM certificate path"},
			&cli.StringFlag{Name: "passphrase", Usage: "Passphrase of an encrypted key", EnvVars: []string{"WEBHOST_KEY_PASSPHRASE"}},
		},
		Action: checkTLS,
	}
}

// TLSCheck is the result of check-tls.
type TLSCheck struct {
	CertPath  string   `json:"crt_path" yaml:"crt_path"`
	KeyPath   string   `json:"key_path" yaml:"key_path"`
	Subjects  []string `json:"subjects" yaml:"subjects"`
	Expires   string   `json:"expires,omitempty" yaml:"expires,omitempty"`
	Encrypted bool     `json:"encrypted" yaml:"encrypted"`
	Usable    bool     `json:"usable" yaml:"usable"`
	Problems  []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

func checkTLS(c *cli.Context) error {
	keyPath, certPath, pass := c.String("key"), c.String("crt"), c.String("passphrase")
	if !c.IsSet("key") || !c.IsSet("crt") || !c.IsSet("passphrase") {
		cfg, err := loadConfig(ParseGlobalFlags(c))
		if err != nil {
			return err
		}
		if !c.IsSet("key") {
			keyPath = cfg.WebServer.KeyPath
		}
		if !c.IsSet("crt") {
			certPath = cfg.WebServer.CrtPath
		}
		if !c.IsSet("passphrase") {
			pass = cfg.WebServer.KeyPassPhrase
		}
	}

	m := tlsmaterial.NewLoader(tlsmaterial.WithLogger(logger.Discard())).Load(keyPath, certPath, pass)
	res := TLSCheck{
		CertPath: m.CertPath,
		KeyPath:  m.KeyPath,
		Usable:   m.Usable(),
	}
	for _, cert := range m.Certificates {
		res.Subjects = append(res.Subjects, cert.Subject())
	}
	if exp := tlsmaterial.EarliestExpiry(m.Certificates); !exp.IsZero() {
		res.Expires = exp.UTC().Format("2006-01-02T15:04:05Z")
	}
	if m.Key != nil {
		res.Encrypted = m.Key.Encrypted
	}
	for _, p := range m.Problems {
		res.Problems = append(res.Problems, p.Error())
	}

	if ParseGlobalFlags(c).Output == output.FormatTable {
		fmt.Fprint(c.App.Writer, m.Summary())
	} else if err := render(c, res); err != nil {
		return err
	}

	if !res.Usable {
		return cli.Exit("TLS material is not usable", 1)
	}
	return nil
}
