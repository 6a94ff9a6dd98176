// Package scenario reads scenario documents from JSON or YAML files.
package scenario

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/hazard-cli/internal/model"
)

// Load reads a scenario from path. Files ending in .yaml or .yml are parsed as
// YAML; everything else as JSON.
func Load(path string) (*model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes and validates a JSON scenario document.
func ParseJSON(data []byte) (*model.Scenario, error) {
	var s model.Scenario
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return nil, eris.Wrap(err, "scenario: parse json")
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseYAML decodes a YAML scenario. The document is converted to JSON first so
// that the embedded land mask stays a GeoJSON object and a single set of field
// tags governs both formats.
func ParseYAML(data []byte) (*model.Scenario, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "scenario: parse yaml")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "scenario: convert yaml")
	}
	return ParseJSON(raw)
}

// Validate checks structural requirements the pipeline relies on: every zone has
// a unique id and no zone has negative population. Geometry is validated later
// by the pipeline, which skips malformed zones.
func Validate(s *model.Scenario) error {
	seen := make(map[string]int, len(s.Zones))
	for i, z := range s.Zones {
		if strings.TrimSpace(z.ID) == "" {
			return eris.Errorf("scenario: zones[%d] has no id", i)
		}
		if j, dup := seen[z.ID]; dup {
			return eris.Errorf("scenario: zones[%d] repeats id %q from zones[%d]", i, z.ID, j)
		}
		seen[z.ID] = i
		if z.Population < 0 {
			return eris.Errorf("scenario: zone %q has negative population", z.ID)
		}
		if br := z.BaselineRisk; br != nil && (*br < 0 || *br > 1) {
			return eris.Errorf("scenario: zone %q baseline_risk %v outside [0,1]", z.ID, *br)
		}
	}
	return nil
}

// Name returns a display name for a scenario: location.name, or the file name
// without extension.
func Name(s *model.Scenario, path string) string {
	if s != nil && s.Location.Name != "" {
		return s.Location.Name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
