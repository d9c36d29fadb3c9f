// Package portprobe finds a free TCP port for the web listener.
//
// The resolver probe-binds the requested port on the wildcard address and
// walks upward one port at a time until a bind succeeds:
//
//   - resolver.go: Resolver, probe loop, port ceiling
//
// The probe socket is released right away, so the result is a best-effort
// answer: another process may grab the port before the real listener binds.
package portprobe
