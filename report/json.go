package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/c360studio/promptcheck/check"
)

// jsonReport is the JSON document written by JSON.
type jsonReport struct {
	*check.Report
	Outcome  string `json:"outcome"`
	ExitCode int    `json:"exit_code"`
}

// JSON writes rep and its outcome as an indented JSON document.
func JSON(w io.Writer, rep *check.Report, policy Policy) error {
	outcome := Evaluate(rep, policy)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{
		Report:   rep,
		Outcome:  outcome.String(),
		ExitCode: outcome.ExitCode(),
	}); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
