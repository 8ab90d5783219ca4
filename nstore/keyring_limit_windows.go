//go:build windows

package nstore

// go-keyring rejects Credential Manager blobs longer than 2560 bytes.
const keyringValueLimit = 2560
