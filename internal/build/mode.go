package build

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mode selects which programs a batch builds and with which features.
type Mode int

const (
	// ModeSelective builds programs with at least one selected feature.
	ModeSelective Mode = iota
	// ModeAll builds every program with no feature argument.
	ModeAll
	// ModeAllForced builds every program with the configured forced feature.
	ModeAllForced
	// ModePreset builds the programs named by a preset with its saved features.
	ModePreset
)

func (m Mode) String() string {
	switch m {
	case ModeSelective:
		return "selective"
	case ModeAll:
		return "all"
	case ModeAllForced:
		return "all-forced"
	case ModePreset:
		return "preset"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Label returns a display form of the mode, e.g. "All Forced".
func (m Mode) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(m.String(), "-", " "))
}

// ParseMode accepts the String form of a mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "selective", "":
		return ModeSelective, nil
	case "all":
		return ModeAll, nil
	case "all-forced", "forced":
		return ModeAllForced, nil
	case "preset":
		return ModePreset, nil
	default:
		return 0, fmt.Errorf("unknown build mode %q", value)
	}
}
