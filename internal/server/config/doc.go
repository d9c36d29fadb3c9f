// Package config defines the webhost-server configuration document.
//
// The document is loaded by confloader in layers (defaults, YAML file, .env,
// WEBHOST_ environment variables), checked with Verify and printed with
// Sanitize. Runtime fallbacks such as a missing document root or a busy port
// are not validation errors; the webserver package recovers from them.
package config
