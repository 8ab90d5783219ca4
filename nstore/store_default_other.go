//go:build !windows

package nstore

// Default locations for the file-backed secret stores.
const (
	DefaultConfigPath = "$HOME/.config/nimbus/secrets"
	DefaultFileDir    = "$HOME/.config/nimbus/secrets.d"
)
