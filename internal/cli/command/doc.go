// Package command defines the webhost-server command line.
//
// It uses urfave/cli/v2. Running the binary without a command serves the
// configured listeners; the other commands inspect configuration, ports,
// TLS material and a running server.
package command
