// Package output renders webhost-server command results as tables, JSON or
// YAML.
//
// Tables are built explicitly by the commands; structured formats encode the
// value as is, so scripts see the same field names as the /status endpoint.
package output
