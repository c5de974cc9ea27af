//go:build !unix

package main

// getMaxRSS is unavailable without getrusage.
func getMaxRSS() uint64 { return 0 }
