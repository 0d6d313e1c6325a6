/*
Copyright © 2026 the FluxPlot authors.
This file is part of FluxPlot.

FluxPlot is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FluxPlot is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FluxPlot.  If not, see <http://www.gnu.org/licenses/>.
*/

package fluxplot

import (
	"io/ioutil"
	"path/filepath"
	"strings"
)

// OutputDirName is the name of the directory created under the base
// directory to hold the generated images and the overview report. It
// is excluded from experiment auto-discovery.
const OutputDirName = "output"

// gridDescriptionFiles are coupler grid and mesh description files
// that live alongside the flux files but hold no flux fields.
var gridDescriptionFiles = map[string]struct{}{
	"grids.nc": {},
	"masks.nc": {},
	"areas.nc": {},
}

// FluxFile is one discovered NetCDF flux file within an experiment
// directory.
type FluxFile struct {
	// Path is the location of the file on disk.
	Path string

	// Experiment is the name of the experiment directory the file
	// belongs to.
	Experiment string

	// Variable is the flux field identifier, taken from the file name
	// without the .nc extension.
	Variable string

	// Component is the model component that produced the flux, derived
	// from the coupler's file naming convention.
	Component string
}

// component maps the coupler's file name prefix to the model component
// that produced the flux: A_* files come from the atmosphere, R_* files
// from the runoff mapper, and everything else from the ocean.
func component(variable string) string {
	switch {
	case strings.HasPrefix(variable, "A_"):
		return "atmosphere"
	case strings.HasPrefix(variable, "R_"):
		return "runoff"
	default:
		return "ocean"
	}
}

// isFluxFile reports whether name looks like a flux file rather than a
// grid or mesh description.
func isFluxFile(name string) bool {
	if !strings.HasSuffix(name, ".nc") {
		return false
	}
	if _, ok := gridDescriptionFiles[name]; ok {
		return false
	}
	if strings.HasSuffix(name, ".mesh.diag.nc") {
		return false
	}
	return true
}

// DiscoverFiles lists the NetCDF flux files in the experiment
// subdirectory of baseDir in lexicographic name order, skipping grid
// and mesh description files. If maxFiles is greater than zero the
// list is truncated to at most that many entries. A directory that
// cannot be listed produces a DiscoveryError; a directory with no flux
// files produces an empty list and no error.
func DiscoverFiles(baseDir, experiment string, maxFiles int) ([]*FluxFile, error) {
	dir := filepath.Join(baseDir, experiment)
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, DiscoveryError{Folder: dir, Err: err}
	}
	var files []*FluxFile
	for _, e := range entries {
		if e.IsDir() || !isFluxFile(e.Name()) {
			continue
		}
		v := strings.TrimSuffix(e.Name(), ".nc")
		files = append(files, &FluxFile{
			Path:       filepath.Join(dir, e.Name()),
			Experiment: experiment,
			Variable:   v,
			Component:  component(v),
		})
		if maxFiles > 0 && len(files) == maxFiles {
			break
		}
	}
	return files, nil
}

// DiscoverExperiments lists the subdirectories of baseDir that may
// hold experiment output, in lexicographic name order. The report
// output directory is excluded.
func DiscoverExperiments(baseDir string) ([]string, error) {
	entries, err := ioutil.ReadDir(baseDir)
	if err != nil {
		return nil, DiscoveryError{Folder: baseDir, Err: err}
	}
	var experiments []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == OutputDirName || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		experiments = append(experiments, e.Name())
	}
	return experiments, nil
}
