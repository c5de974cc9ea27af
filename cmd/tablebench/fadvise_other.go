//go:build !linux

package main

// fadviseSequential is a no-op: FADV_SEQUENTIAL is Linux-specific.
func fadviseSequential(fd int, length int64) {}
