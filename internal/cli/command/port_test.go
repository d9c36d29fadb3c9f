package command

import (
	"encoding/json"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbePort_Free(t *testing.T) {
	port := freePort(t)

	out, err := runApp(t, "-o", "json", "probe-port", strconv.Itoa(port))
	require.NoError(t, err)

	var res PortProbe
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint16(port), res.Requested)
	assert.Equal(t, uint16(port), res.Port)
	assert.False(t, res.Adjusted)
}

func TestProbePort_Occupied(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	out, err := runApp(t, "-o", "json", "probe-port", strconv.Itoa(busy))
	require.NoError(t, err)

	var res PortProbe
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Adjusted)
	assert.Greater(t, res.Port, uint16(busy))
}

func TestProbePort_Table(t *testing.T) {
	out, err := runApp(t, "probe-port", strconv.Itoa(freePort(t)))
	require.NoError(t, err)
	assert.Contains(t, out, "REQUESTED")
	assert.Contains(t, out, "no")
}

func TestProbePort_InvalidArgs(t *testing.T) {
	_, err := runApp(t, "probe-port")
	assert.Error(t, err)

	_, err = runApp(t, "probe-port", "http")
	assert.ErrorContains(t, err, "invalid port")

	_, err = runApp(t, "probe-port", "70000")
	assert.ErrorContains(t, err, "invalid port")
}
