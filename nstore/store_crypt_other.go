//go:build !windows

package nstore

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// Embedded key for file-backed secrets. This keeps secrets out of plain
// text on disk; anyone holding the binary can recover it.
var embeddedKey = [32]byte{
	0x4e, 0x69, 0x6d, 0x62, 0x75, 0x73, 0x9d, 0x21,
	0xc7, 0x3a, 0x58, 0xe2, 0x0f, 0x94, 0x6b, 0xd1,
	0x83, 0x2e, 0xf5, 0x17, 0xaa, 0x4c, 0x39, 0xbe,
	0x62, 0x08, 0xdf, 0x75, 0x1b, 0xc4, 0x90, 0x5d,
}

const nonceSize = 24

var errDecrypt = errors.New("decrypt failed")

// encryptValue seals plaintext with nacl/secretbox.
// The result is nonce followed by ciphertext.
func encryptValue(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &embeddedKey), nil
}

// decryptValue opens a value produced by encryptValue.
func decryptValue(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("ciphertext too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &embeddedKey)
	if !ok {
		return nil, errDecrypt
	}
	return plaintext, nil
}
