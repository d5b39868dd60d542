// Package calibfile loads per-station calibration tables from YAML or JSON.
//
// The file maps station IDs to calibration entries under a "stations" key;
// an optional "default" entry applies to stations without their own:
//
//	default:
//	  full_scale_g: 2
//	  adc_bits: 24
//	stations:
//	  ST01:
//	    counts_per_g: 3774873.6
package calibfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

type file struct {
	Default  *domain.Calibration           `json:"default,omitempty" yaml:"default,omitempty"`
	Stations map[string]domain.Calibration `json:"stations" yaml:"stations"`
}

// Load reads and validates a calibration table. Every entry must yield a
// usable sensitivity.
func Load(path string) (domain.CalibrationTable, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil, errors.New("calibration file is empty")
	}

	var f file
	if strings.HasPrefix(trimmed, "{") {
		err = json.Unmarshal([]byte(trimmed), &f)
	} else {
		err = yaml.Unmarshal([]byte(trimmed), &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse calibration file %s: %w", filepath.Base(path), err)
	}

	table := make(domain.CalibrationTable, len(f.Stations)+1)
	for id, cal := range f.Stations {
		id = strings.TrimSpace(id)
		if id == "" || id == domain.DefaultStationKey {
			return nil, fmt.Errorf("calibration file %s: invalid station id %q", filepath.Base(path), id)
		}
		table[id] = cal
	}
	if f.Default != nil {
		table[domain.DefaultStationKey] = *f.Default
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("calibration file %s has no entries", filepath.Base(path))
	}

	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := table[id].Sensitivity(); err != nil {
			return nil, fmt.Errorf("calibration for %q: %w", id, err)
		}
	}
	return table, nil
}

// Save writes table as YAML.
func Save(path string, table domain.CalibrationTable) error {
	var f file
	f.Stations = make(map[string]domain.Calibration, len(table))
	for id, cal := range table {
		if id == domain.DefaultStationKey {
			c := cal
			f.Default = &c
			continue
		}
		f.Stations[id] = cal
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode calibration table: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
