package engine

import (
	"fmt"
	"strings"
)

// Mode selects what happens to the plan once it is computed.
type Mode int

const (
	ModeReportOnly Mode = iota
	ModeAutoDelete
	ModeDelegate
)

func (m Mode) String() string {
	switch m {
	case ModeReportOnly:
		return "report"
	case ModeAutoDelete:
		return "delete"
	case ModeDelegate:
		return "delegate"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "report", "report-only":
		return ModeReportOnly, nil
	case "delete", "auto-delete":
		return ModeAutoDelete, nil
	case "delegate", "handler":
		return ModeDelegate, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
