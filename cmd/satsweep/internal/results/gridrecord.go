// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/grid"
)

// ErrGridMismatch means a results file is being resumed with a grid other
// than the one it was started with.
var ErrGridMismatch = errors.New("results file was started with a different grid")

// gridRecord is the on-disk form of the axes a results file was started with.
type gridRecord struct {
	Temperature   []int     `yaml:"temperature"`
	Cooling       []float64 `yaml:"cooling"`
	Equilibrium   []int     `yaml:"equilibrium"`
	NoImprovement []int     `yaml:"no_improvement"`
	Trials        int       `yaml:"trials"`
}

func recordOf(a grid.Axes) gridRecord {
	return gridRecord{
		Temperature:   a.Temperatures,
		Cooling:       a.CoolingRatios,
		Equilibrium:   a.EquilibriumLengths,
		NoImprovement: a.NoImproveCutoffs,
		Trials:        a.Trials,
	}
}

func (r gridRecord) equal(o gridRecord) bool {
	return slices.Equal(r.Temperature, o.Temperature) &&
		slices.Equal(r.Cooling, o.Cooling) &&
		slices.Equal(r.Equilibrium, o.Equilibrium) &&
		slices.Equal(r.NoImprovement, o.NoImprovement) &&
		r.Trials == o.Trials
}

func (r gridRecord) String() string {
	return fmt.Sprintf("T=%v C=%v equ=%v noimp=%v trials=%d",
		r.Temperature, r.Cooling, r.Equilibrium, r.NoImprovement, r.Trials)
}

// GridPath returns the file that records the grid of the results file at
// resultsPath: "<resultsPath>.grid.yaml".
func GridPath(resultsPath string) string {
	return resultsPath + ".grid.yaml"
}

// SaveGrid records axes next to a freshly created results file.
//
// A record left over from an earlier file at the same path is replaced;
// Create has already established that the results file itself is new.
func SaveGrid(resultsPath string, axes grid.Axes) error {
	data, err := yaml.Marshal(recordOf(axes))
	if err != nil {
		return fmt.Errorf("encode grid record: %w", err)
	}
	if err := os.WriteFile(GridPath(resultsPath), data, 0644); err != nil {
		return fmt.Errorf("write grid record: %w", err)
	}
	return nil
}

// CheckGrid compares axes with the grid recorded for resultsPath.
//
// # Description
//
// Row counts only identify a resume point under the grid that produced
// them. Resuming with other axes or another trial count would continue at
// the wrong tuple, so it is refused.
//
// # Outputs
//
//   - error: nil if the grids match; ErrGridMismatch naming both grids;
//     an error matching fs.ErrNotExist if no record exists (files written
//     before records were kept); other read or decode errors wrapped
func CheckGrid(resultsPath string, axes grid.Axes) error {
	path := GridPath(resultsPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read grid record: %w", err)
	}

	var recorded gridRecord
	if err := yaml.Unmarshal(data, &recorded); err != nil {
		return fmt.Errorf("decode grid record %s: %w", path, err)
	}

	current := recordOf(axes)
	if !recorded.equal(current) {
		return fmt.Errorf("%s: %w: recorded %s, requested %s",
			resultsPath, ErrGridMismatch, recorded, current)
	}
	return nil
}
