package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFinalOutput is returned when a run ended without a message output.
	ErrNoFinalOutput = errors.New("run produced no final output")

	// ErrInvalidOutput is returned when the final output does not decode into the declared type.
	ErrInvalidOutput = errors.New("final output does not match output type")
)

// DecodeOutput unmarshals the run's final output into v.
func DecodeOutput(result *RunResult, v interface{}) error {
	if result == nil || result.FinalOutput == nil || strings.TrimSpace(*result.FinalOutput) == "" {
		return ErrNoFinalOutput
	}
	if err := json.Unmarshal([]byte(extractJSON(*result.FinalOutput)), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return nil
}

// extractJSON strips markdown code fences and surrounding prose.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}
