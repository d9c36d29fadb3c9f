package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/webhost-go/internal/infra/tlsmaterial"
)

func TestCheckTLS_MissingFilesFallBack(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, "check-tls",
		"--key", filepath.Join(dir, "missing.key"),
		"--crt", filepath.Join(dir, "missing.crt"),
		"--passphrase", "",
	)
	require.NoError(t, err)
	assert.Contains(t, out, tlsmaterial.BuiltinCertPath)
	assert.Contains(t, out, "RSA")
}

func TestCheckTLS_FromConfig(t *testing.T) {
	out, err := runApp(t, "-o", "json", "check-tls")
	require.NoError(t, err)

	var res TLSCheck
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Usable)
	assert.Equal(t, tlsmaterial.BuiltinKeyPath, res.KeyPath)
	assert.NotEmpty(t, res.Subjects)
	assert.NotEmpty(t, res.Expires)
}

func TestCheckTLS_InvalidMaterial(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))

	out, err := runApp(t, "check-tls", "--key", bad, "--crt", bad, "--passphrase", "")
	require.Error(t, err)

	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.ExitCode())
	assert.Contains(t, out, "problem:")
}
