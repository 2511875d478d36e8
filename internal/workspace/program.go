package workspace

// Feature is a named optional build configuration of one program.
// SubFeatures lists what the feature enables; it is informational only.
type Feature struct {
	Name        string   `json:"name"`
	SubFeatures []string `json:"sub_features,omitempty"`
}

// Program is one buildable project discovered in the workspace.
type Program struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Features []Feature `json:"features"`
	Selected []bool    `json:"selected"`
}

// EnsureSelection resizes Selected to match Features, defaulting new slots to false.
func (p *Program) EnsureSelection() {
	switch {
	case len(p.Selected) == len(p.Features):
		return
	case len(p.Selected) > len(p.Features):
		p.Selected = p.Selected[:len(p.Features)]
	default:
		p.Selected = append(p.Selected, make([]bool, len(p.Features)-len(p.Selected))...)
	}
}

// FeatureIndex returns the index of the named feature, or -1.
func (p *Program) FeatureIndex(name string) int {
	for i, f := range p.Features {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// IsSelected reports whether the named feature is selected.
func (p *Program) IsSelected(name string) bool {
	p.EnsureSelection()
	idx := p.FeatureIndex(name)
	return idx >= 0 && p.Selected[idx]
}

// SelectedFeatures returns the selected feature names in declaration order.
func (p *Program) SelectedFeatures() []string {
	p.EnsureSelection()
	var names []string
	for i, f := range p.Features {
		if p.Selected[i] {
			names = append(names, f.Name)
		}
	}
	return names
}

// HasSelection reports whether at least one feature is selected.
func (p *Program) HasSelection() bool {
	p.EnsureSelection()
	for _, sel := range p.Selected {
		if sel {
			return true
		}
	}
	return false
}

// Clone returns a deep copy whose selection vector is already repaired.
func (p Program) Clone() Program {
	out := Program{Name: p.Name, Path: p.Path}
	if p.Features != nil {
		out.Features = make([]Feature, len(p.Features))
		for i, f := range p.Features {
			out.Features[i] = Feature{Name: f.Name, SubFeatures: append([]string(nil), f.SubFeatures...)}
		}
	}
	out.Selected = append([]bool(nil), p.Selected...)
	out.EnsureSelection()
	return out
}

// CloneAll deep-copies a program list so a batch cannot observe later edits.
func CloneAll(programs []Program) []Program {
	if programs == nil {
		return nil
	}
	out := make([]Program, len(programs))
	for i := range programs {
		out[i] = programs[i].Clone()
	}
	return out
}

// Find returns the index of the named program, or -1.
func Find(programs []Program, name string) int {
	for i := range programs {
		if programs[i].Name == name {
			return i
		}
	}
	return -1
}
