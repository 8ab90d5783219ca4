//go:build !windows

package nstore

const keyringValueLimit = 0
