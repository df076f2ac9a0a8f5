//go:build !linux

package core

// platformParallelism has no affinity source outside Linux.
func platformParallelism() int {
	return 0
}
