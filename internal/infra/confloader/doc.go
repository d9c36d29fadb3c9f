// Package confloader reads webhost-server configuration through koanf.
//
// Layers, lowest precedence first:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. .env file (godotenv), never overriding the process environment
//  4. Environment variables (WEBHOST_SECTION_KEY)
//  5. Overrides, usually command line flags
//
// A Watcher reports writes to watched files through fsnotify and Throttle
// paces the resulting reloads with a token bucket.
package confloader
