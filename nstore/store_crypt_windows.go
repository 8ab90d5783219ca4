//go:build windows

package nstore

import (
	"github.com/billgraziano/dpapi"
)

// encryptValue protects data for the current user with DPAPI.
func encryptValue(plaintext []byte) ([]byte, error) {
	return dpapi.EncryptBytes(plaintext)
}

func decryptValue(ciphertext []byte) ([]byte, error) {
	return dpapi.DecryptBytes(ciphertext)
}
