package assets

import (
	"encoding/pem"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebRoot_HasIndex(t *testing.T) {
	data, err := fs.ReadFile(WebRoot(), "index.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "webhost")
}

func TestReadFile_BundledKeyPair(t *testing.T) {
	crt, err := ReadFile(CertFile)
	require.NoError(t, err)
	block, _ := pem.Decode(crt)
	require.NotNil(t, block)
	assert.Equal(t, "CERTIFICATE", block.Type)

	key, err := ReadFile(KeyFile)
	require.NoError(t, err)
	block, _ = pem.Decode(key)
	require.NotNil(t, block)
	assert.Equal(t, "PRIVATE KEY", block.Type)
}
