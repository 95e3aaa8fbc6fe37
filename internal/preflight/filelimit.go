package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the descriptor floor for watching. Some watch
// backends hold one descriptor per watched directory, so deep trees eat
// into the limit quickly.
const MinFileDescriptors = 1024

// CheckFileDescriptors verifies the process may open enough file
// descriptors for recursive watching plus the stores.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors", Required: true}

	var lim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &lim); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum %d)", lim.Cur, MinFileDescriptors)
	if lim.Cur < MinFileDescriptors {
		result.Status = StatusFail
		result.Details = "Raise it with 'ulimit -n 4096' before running 'recall watch'"
		return result
	}

	result.Status = StatusPass
	return result
}
