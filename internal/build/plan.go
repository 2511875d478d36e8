package build

import (
	"buildbench/internal/presets"
	"buildbench/internal/workspace"
)

// Request describes one batch.
type Request struct {
	Mode     Mode
	Programs []workspace.Program
	// Preset is required for ModePreset and ignored otherwise.
	Preset *presets.Preset
	// OutputDir is passed to every invocation when non-empty.
	OutputDir string
}

// Job is one planned invocation.
type Job struct {
	Program  string
	Dir      string
	Features []string
}

// Plan selects the programs of req in snapshot order and the feature list for
// each. For ModePreset it also returns preset entries whose program is not in
// the snapshot, in preset order.
func Plan(req Request, forcedFeature string) ([]Job, []string) {
	var jobs []Job
	switch req.Mode {
	case ModeSelective:
		for i := range req.Programs {
			p := &req.Programs[i]
			if selected := p.SelectedFeatures(); len(selected) > 0 {
				jobs = append(jobs, Job{Program: p.Name, Dir: p.Path, Features: selected})
			}
		}
	case ModeAll:
		for _, p := range req.Programs {
			jobs = append(jobs, Job{Program: p.Name, Dir: p.Path})
		}
	case ModeAllForced:
		for _, p := range req.Programs {
			jobs = append(jobs, Job{Program: p.Name, Dir: p.Path, Features: []string{forcedFeature}})
		}
	case ModePreset:
		if req.Preset == nil {
			return nil, nil
		}
		wanted := make(map[string][]string, len(req.Preset.Entries))
		for _, e := range req.Preset.Entries {
			if _, dup := wanted[e.Program]; !dup {
				wanted[e.Program] = e.Features
			}
		}
		found := make(map[string]bool, len(wanted))
		for _, p := range req.Programs {
			features, ok := wanted[p.Name]
			if !ok || found[p.Name] {
				continue
			}
			found[p.Name] = true
			jobs = append(jobs, Job{Program: p.Name, Dir: p.Path, Features: append([]string(nil), features...)})
		}
		var skipped []string
		for _, e := range req.Preset.Entries {
			if !found[e.Program] {
				skipped = append(skipped, e.Program)
				found[e.Program] = true
			}
		}
		return jobs, skipped
	}
	return jobs, nil
}
