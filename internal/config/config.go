// Package config loads schedule files for the callsched command.
//
// A schedule file is YAML (.yaml, .yml) or JSON holding a list of jobs:
//
//	jobs:
//	  - name: heartbeat
//	    handler: log
//	    offset: "00:00"
//	    interval: 1m
//	    args: ["still alive"]
//
// Every key other than name is handed to callsched.DecodeSpec.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DEEJ4Y/callsched"
	yaml "go.yaml.in/yaml/v3"
)

// File is the decoded schedule file.
type File struct {
	Jobs []Entry
}

// Entry is one job in a schedule file.
type Entry struct {
	Name string
	Raw  map[string]any
}

// Spec decodes the entry against the given handlers.
func (e Entry) Spec(handlers callsched.Handlers) (callsched.Spec, error) {
	spec, err := callsched.DecodeSpec(e.Raw, handlers)
	if err != nil {
		return spec, fmt.Errorf("job %q: %w", e.Name, err)
	}
	return spec, nil
}

type rawFile struct {
	Jobs []map[string]any `json:"jobs" yaml:"jobs"`
}

// Load reads and parses the schedule file at path.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

// Parse decodes data, choosing the format from the extension of path.
func Parse(path string, data []byte) (*File, error) {
	var raw rawFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
		// reject trailing tokens (e.g. concatenated JSON)
		if err := dec.Decode(&struct{}{}); err != io.EOF {
			if err == nil {
				return nil, fmt.Errorf("invalid schedule: trailing data")
			}
			return nil, err
		}
	}

	f := &File{Jobs: make([]Entry, 0, len(raw.Jobs))}
	seen := make(map[string]bool, len(raw.Jobs))
	for i, m := range raw.Jobs {
		name := fmt.Sprintf("job-%d", i+1)
		if v, ok := m["name"]; ok {
			s, isString := v.(string)
			if !isString || s == "" {
				return nil, fmt.Errorf("job %d: name must be a non-empty string", i+1)
			}
			name = s
			delete(m, "name")
		}
		if seen[name] {
			return nil, fmt.Errorf("job %q: duplicate name", name)
		}
		seen[name] = true
		f.Jobs = append(f.Jobs, Entry{Name: name, Raw: m})
	}
	return f, nil
}
