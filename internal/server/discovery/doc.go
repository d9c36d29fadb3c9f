// Package discovery advertises the plain HTTP listener on the local network.
//
// A Publisher keeps at most one registration per service and moves it when
// the listener port changes. The advertising mechanism is an Advertiser:
//
//   - MDNS: multicast DNS service records (hashicorp/mdns)
//   - Gossip: node metadata in a memberlist cluster (hashicorp/memberlist)
//   - Noop: records the port without announcing it
//
// Advertisement failures are logged and never reach the listener.
package discovery
