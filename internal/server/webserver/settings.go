package webserver

import (
	"github.com/yndnr/webhost-go/internal/server/config"
)

// BuiltinDocumentRoot selects the web root embedded in the binary.
const BuiltinDocumentRoot = "builtin://webconfig"

// Default ports used when the configured port is zero.
const (
	DefaultPort    uint16 = config.DefaultPort
	DefaultSSLPort uint16 = config.DefaultSSLPort
)

// Settings is the desired state of one listener. It is passed by value.
type Settings struct {
	DocumentRoot  string
	Port          uint16
	SSLPort       uint16
	Secure        bool
	KeyPath       string
	CertPath      string
	KeyPassphrase string
}

// EffectivePort returns the port this listener should use.
func (s Settings) EffectivePort() uint16 {
	if s.Secure {
		if s.SSLPort == 0 {
			return DefaultSSLPort
		}
		return s.SSLPort
	}
	if s.Port == 0 {
		return DefaultPort
	}
	return s.Port
}

// SettingsFrom derives the settings of the plain (secure=false) or secure
// instance from the webserver section. Verified configuration keeps ports
// within range.
func SettingsFrom(ws config.WebServerSection, secure bool) Settings {
	return Settings{
		DocumentRoot:  ws.DocumentRoot,
		Port:          uint16(ws.Port),
		SSLPort:       uint16(ws.SSLPort),
		Secure:        secure,
		KeyPath:       ws.KeyPath,
		CertPath:      ws.CrtPath,
		KeyPassphrase: ws.KeyPassPhrase,
	}
}
