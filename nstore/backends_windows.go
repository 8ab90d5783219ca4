//go:build windows

package nstore

func platformBackends() []Backend {
	return []Backend{{
		Name:        "registry",
		Description: "DPAPI-protected values in the Windows registry",
		Creatable:   true,
		Open: func(cfg BackendConfig) (DataStore, error) {
			return NewRegistryDataStore(orDefault(cfg.Path, DefaultRegistryPath))
		},
	}}
}
