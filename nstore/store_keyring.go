package nstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultServiceID addresses nimbus entries in the OS keyring.
const DefaultServiceID = "NimbusTool"

// KeyringDataStore implements DataStore on the OS credential vault
// (Windows Credential Manager, macOS Keychain, Secret Service on Linux).
// The vault encrypts at rest, so the encrypt flag is ignored.
// Values are stored as strings; callers store text.
type KeyringDataStore struct {
	service string
}

var (
	_ DataStore = (*KeyringDataStore)(nil)
	_ Limiter   = (*KeyringDataStore)(nil)
)

// NewKeyringDataStore creates a keyring store for the given service.
func NewKeyringDataStore(service string) *KeyringDataStore {
	if service == "" {
		service = DefaultServiceID
	}
	return &KeyringDataStore{service: service}
}

func (s *KeyringDataStore) Get(key string, decrypt bool) ([]byte, error) {
	v, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get %s: %w", key, err)
	}
	return []byte(v), nil
}

func (s *KeyringDataStore) Set(key string, encrypt bool, value []byte) error {
	if err := keyring.Set(s.service, key, string(value)); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}

func (s *KeyringDataStore) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s: %w", key, err)
	}
	return nil
}

func (s *KeyringDataStore) Path() string {
	return "keyring:" + s.service
}

// MaxValueSize reports the platform credential size limit.
func (s *KeyringDataStore) MaxValueSize() int {
	return keyringValueLimit
}
