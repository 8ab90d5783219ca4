//go:build windows

package nstore

// Default locations for the secret stores on Windows.
const (
	DefaultConfigPath   = `$APPDATA\nimbus\secrets`
	DefaultFileDir      = `$APPDATA\nimbus\secrets.d`
	DefaultRegistryPath = `CU\SOFTWARE\nimbus\secrets`
)
