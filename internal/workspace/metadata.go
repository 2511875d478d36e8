package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// metadata mirrors the subset of `cargo metadata --format-version 1` we read.
type metadata struct {
	Packages      []metadataPackage `json:"packages"`
	WorkspaceRoot string            `json:"workspace_root"`
}

type metadataPackage struct {
	Name         string               `json:"name"`
	ManifestPath string               `json:"manifest_path"`
	Dependencies []metadataDependency `json:"dependencies"`
	Features     orderedFeatures      `json:"features"`
}

type metadataDependency struct {
	Name   string  `json:"name"`
	Rename *string `json:"rename"`
	Kind   *string `json:"kind"`
}

func (p metadataPackage) dependsOn(name string) bool {
	for _, dep := range p.Dependencies {
		if dep.Name == name {
			return true
		}
	}
	return false
}

// orderedFeatures decodes the features object keeping key order, which
// map-based decoding would lose.
type orderedFeatures []Feature

func (o *orderedFeatures) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("features: expected object, got %v", tok)
	}
	var out []Feature
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("features: expected key, got %v", tok)
		}
		var subs []string
		if err := dec.Decode(&subs); err != nil {
			return fmt.Errorf("features: %s: %w", name, err)
		}
		out = append(out, Feature{Name: name, SubFeatures: subs})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

func decodeMetadata(data []byte) (metadata, error) {
	var md metadata
	if len(bytes.TrimSpace(data)) == 0 {
		return md, errors.New("empty metadata output")
	}
	if err := json.Unmarshal(data, &md); err != nil {
		return md, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}
