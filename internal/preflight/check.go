package preflight

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// CheckStatus classifies the outcome of one check.
type CheckStatus int

const (
	// StatusPass means the check found nothing wrong.
	StatusPass CheckStatus = iota
	// StatusWarn means something is off but nothing is blocked.
	StatusWarn
	// StatusFail means the check found a real problem.
	StatusFail
)

// String returns the uppercase name of the status.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the status as its lowercase name.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(s.String()))
}

// CheckResult holds the outcome of a single check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports whether a required check failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Target identifies what the checks inspect.
type Target struct {
	Root     string // project root
	DataDir  string // resolved data directory
	LockPath string // watch lock file inside the data directory
}

// Checker runs environment checks for a project.
type Checker struct {
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose includes check details in printed output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) { c.verbose = verbose }
}

// WithOutput sets where PrintResults writes.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.output = w }
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against the target.
func (c *Checker) RunAll(t Target) []CheckResult {
	return []CheckResult{
		c.CheckWritePermissions(t.Root),
		c.CheckDiskSpace(t.Root),
		c.CheckFileDescriptors(),
		c.CheckConfig(t.Root),
		c.CheckIndexState(t.DataDir),
		c.CheckIndexLock(t.LockPath),
	}
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus condenses the results into one word: failed when a
// required check failed, ready_with_warnings when anything else is off,
// ready otherwise.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	status := "ready"
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			status = "ready_with_warnings"
		}
	}
	return status
}

// PrintResults writes a human-readable report to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "Recall Doctor")
	_, _ = fmt.Fprintln(c.output, "=============")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "       %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var problems []string
	for _, r := range results {
		if r.Status == StatusPass {
			continue
		}
		line := r.Name + ": " + r.Message
		if r.Details != "" {
			line += " (" + r.Details + ")"
		}
		problems = append(problems, line)
	}
	if len(problems) > 0 {
		_, _ = fmt.Fprintln(c.output)
		for _, p := range problems {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", p)
		}
	}
}

// CheckWritePermissions verifies the index can be created under root.
func (c *Checker) CheckWritePermissions(root string) CheckResult {
	result := CheckResult{Name: "write_permissions", Required: true}

	probe, err := os.CreateTemp(root, ".recall-doctor-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to %s: %v", root, err)
		return result
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "ok"
	return result
}
