// Package selection carries operator feature choices across workspace rescans
// and applies edits to a live program list.
//
// Feature indices are not stable between scans: tables grow, shrink and
// reorder. Everything here matches programs and features by name.
package selection

import (
	"errors"
	"fmt"
	"strings"

	"buildbench/internal/workspace"
)

var (
	// ErrUnknownProgram reports a program name absent from the list.
	ErrUnknownProgram = errors.New("unknown program")
	// ErrUnknownFeature reports a feature name absent from a program.
	ErrUnknownFeature = errors.New("unknown feature")
)

// Reconcile copies selection flags from old into fresh by program name and
// then feature name. Features without a match start unselected; programs only
// present in old are dropped. fresh is modified in place and returned.
func Reconcile(old, fresh []workspace.Program) []workspace.Program {
	byName := make(map[string]*workspace.Program, len(old))
	for i := range old {
		if _, dup := byName[old[i].Name]; !dup {
			byName[old[i].Name] = &old[i]
		}
	}
	for i := range fresh {
		p := &fresh[i]
		p.Selected = make([]bool, len(p.Features))
		prev, ok := byName[p.Name]
		if !ok {
			continue
		}
		for j, f := range p.Features {
			p.Selected[j] = prev.IsSelected(f.Name)
		}
	}
	return fresh
}

// Toggle flips one feature flag and returns its new value.
func Toggle(programs []workspace.Program, program, feature string) (bool, error) {
	p, idx, err := locate(programs, program, feature)
	if err != nil {
		return false, err
	}
	p.Selected[idx] = !p.Selected[idx]
	return p.Selected[idx], nil
}

// Set replaces a program's selection with exactly the named features.
func Set(programs []workspace.Program, program string, features ...string) error {
	i := workspace.Find(programs, program)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, program)
	}
	p := &programs[i]
	next := make([]bool, len(p.Features))
	for _, name := range features {
		idx := p.FeatureIndex(name)
		if idx < 0 {
			return fmt.Errorf("%w: %s has no feature %q", ErrUnknownFeature, program, name)
		}
		next[idx] = true
	}
	p.Selected = next
	return nil
}

// ClearAll unselects every feature of every program.
func ClearAll(programs []workspace.Program) {
	for i := range programs {
		programs[i].Selected = make([]bool, len(programs[i].Features))
	}
}

// Preview renders "name: f1, f2" for each program with a selection, in list order.
func Preview(programs []workspace.Program) []string {
	var lines []string
	for i := range programs {
		selected := programs[i].SelectedFeatures()
		if len(selected) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", programs[i].Name, strings.Join(selected, ", ")))
	}
	return lines
}

// ParseAssignment splits "program=feat1,feat2" into its parts.
func ParseAssignment(value string) (string, []string, error) {
	name, list, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("expected program=feature[,feature...], got %q", value)
	}
	var features []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		return "", nil, fmt.Errorf("no features given for %s", name)
	}
	return name, features, nil
}

func locate(programs []workspace.Program, program, feature string) (*workspace.Program, int, error) {
	i := workspace.Find(programs, program)
	if i < 0 {
		return nil, -1, fmt.Errorf("%w: %s", ErrUnknownProgram, program)
	}
	p := &programs[i]
	p.EnsureSelection()
	idx := p.FeatureIndex(feature)
	if idx < 0 {
		return nil, -1, fmt.Errorf("%w: %s has no feature %q", ErrUnknownFeature, program, feature)
	}
	return p, idx, nil
}
