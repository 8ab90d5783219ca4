//go:build !windows

package nstore

func platformBackends() []Backend { return nil }
