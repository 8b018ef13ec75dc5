// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scix-harvest/pkg/types"
)

const manifestSuffix = ".run.yaml"

// Sink owns the output files of one run: the result JSON and the YAML run
// manifest next to it. Every write goes to a temp file that is renamed into
// place, so readers never observe a half-written file.
type Sink struct {
	path string
}

// OpenSink creates dir if needed and returns a sink for dir/name.
func OpenSink(dir, name string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return &Sink{path: filepath.Join(dir, name)}, nil
}

// Path returns the result file path.
func (s *Sink) Path() string { return s.path }

// ManifestPath returns the run manifest path.
func (s *Sink) ManifestPath() string { return ManifestPath(s.path) }

// ManifestPath returns the manifest path belonging to a result file.
func ManifestPath(resultPath string) string {
	return strings.TrimSuffix(resultPath, filepath.Ext(resultPath)) + manifestSuffix
}

// WriteResults persists set as indented JSON.
func (s *Sink) WriteResults(set types.ResultSet) error {
	data, err := EncodeResults(set)
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data)
}

// WriteManifest persists m as YAML.
func (s *Sink) WriteManifest(m types.RunManifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling run manifest: %w", err)
	}
	return writeAtomic(s.ManifestPath(), data)
}

// EncodeResults serializes set in the result file format: a JSON object of
// id → {highlighted_text, source}, indented by four spaces, HTML left
// unescaped so highlight markup stays readable.
func EncodeResults(set types.ResultSet) ([]byte, error) {
	if set == nil {
		set = types.ResultSet{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("marshaling results: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadResults loads a result file written by WriteResults.
func ReadResults(path string) (types.ResultSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	var set types.ResultSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing results %s: %w", path, err)
	}
	return set, nil
}

// ReadManifest loads the run manifest belonging to a result file.
func ReadManifest(resultPath string) (types.RunManifest, error) {
	var m types.RunManifest
	data, err := os.ReadFile(ManifestPath(resultPath))
	if err != nil {
		return m, fmt.Errorf("reading run manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing run manifest: %w", err)
	}
	return m, nil
}

// OutputName returns the result file name for a search:
// <field>_<terms without spaces>.json, several terms joined by "_".
func OutputName(field types.SearchField, terms []string) string {
	var parts []string
	for _, t := range terms {
		t = strings.Join(strings.Fields(t), "")
		t = strings.NewReplacer("/", "-", `\`, "-", `"`, "").Replace(t)
		if t != "" {
			parts = append(parts, t)
		}
	}
	return fmt.Sprintf("%s_%s.json", field, strings.Join(parts, "_"))
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".harvest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	chmodErr := tmp.Chmod(0o644)
	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	for _, err := range []error{chmodErr, writeErr, syncErr, closeErr} {
		if err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
