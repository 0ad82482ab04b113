//go:build !windows && !freebsd

package main

import "golang.org/x/sys/unix"

func setNoFile(value uint64) error {
	rLimit := unix.Rlimit{
		Cur: value,
		Max: value,
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
}
