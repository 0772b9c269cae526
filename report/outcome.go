// Package report renders consistency reports and decides the outcome of a
// check.
package report

import (
	"fmt"
	"io"

	"github.com/c360studio/promptcheck/check"
	"github.com/c360studio/promptcheck/config"
)

// Outcome is the externally visible result of a run. Its value is the
// process exit code.
type Outcome int

const (
	// Success means every referenced identifier is declared.
	Success Outcome = 0
	// Failure means the report found a content defect.
	Failure Outcome = 1
	// SetupFailure means an input could not be read.
	SetupFailure Outcome = 2
)

// ExitCode returns the process exit code for o.
func (o Outcome) ExitCode() int {
	return int(o)
}

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case SetupFailure:
		return "setup failure"
	default:
		return "unknown"
	}
}

// Policy decides which report findings fail a check.
type Policy struct {
	// AllowDuplicates keeps duplicate declarations from failing the check.
	AllowDuplicates bool
}

// Evaluate returns Success when nothing is missing, the registry declaration
// was found and, unless the policy allows them, nothing is declared twice.
func Evaluate(rep *check.Report, policy Policy) Outcome {
	if rep == nil {
		return SetupFailure
	}
	if len(rep.Missing) > 0 || rep.Malformed != "" {
		return Failure
	}
	if len(rep.Duplicates) > 0 && !policy.AllowDuplicates {
		return Failure
	}
	return Success
}

// Options selects how Write renders a report.
type Options struct {
	// Format is config.FormatText or config.FormatJSON. Empty means text.
	Format  string
	Verbose bool
	Policy  Policy
}

// Write renders rep to w in the selected format and returns the outcome.
func Write(w io.Writer, rep *check.Report, opts Options) (Outcome, error) {
	var err error
	switch opts.Format {
	case config.FormatJSON:
		err = JSON(w, rep, opts.Policy)
	case "", config.FormatText:
		err = Text{Verbose: opts.Verbose}.Write(w, rep, opts.Policy)
	default:
		err = fmt.Errorf("unknown report format %q", opts.Format)
	}
	if err != nil {
		return SetupFailure, err
	}
	return Evaluate(rep, opts.Policy), nil
}
