package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes emitted by the firmware host.
const (
	CodeStarted    = "HOST.START"
	CodeFallback   = "DRIVER.FALLBACK"
	CodeLinkFailed = "LINK.FAILED"
)

type Diagnostic struct {
	T              int64          `json:"t"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Stamp sets T to now if it is unset.
func (d Diagnostic) Stamp() Diagnostic {
	if d.T == 0 {
		d.T = time.Now().UnixNano()
	}
	return d
}

func Started(driver string) Diagnostic {
	return Diagnostic{
		Severity: Info,
		Code:     CodeStarted,
		Summary:  "keyboard host started",
		Evidence: map[string]any{"driver": driver},
	}
}

// Fallback describes a hardware driver that could not be opened and was
// replaced by a simulated one.
func Fallback(driver string, err error) Diagnostic {
	return Diagnostic{
		Severity: Warn,
		Code:     CodeFallback,
		Summary:  driver + " unavailable, using simulation",
		Detail:   errString(err),
		LikelyCauses: []string{
			"not running on a board with GPIO",
			"pin names in config do not exist on this host",
			"missing permission on /dev/gpiomem or /dev/spidev*",
		},
		SuggestedFixes: []string{"check the pin names under matrix and link", "run with driver: sim to silence this"},
		Evidence:       map[string]any{"driver": driver},
	}
}

// LinkFailed reports the run loop stopping on a hardware error.
func LinkFailed(err error) Diagnostic {
	return Diagnostic{
		Severity: Err,
		Code:     CodeLinkFailed,
		Summary:  "firmware loop stopped",
		Detail:   errString(err),
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
