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

// Package fluxplot renders the NetCDF flux fields exchanged through a
// climate model coupler as static maps, both on their native grids and
// regridded to a regular latitude-longitude grid, and assembles the
// images into an HTML report for comparing experiments.
package fluxplot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "0.1.0"

// Config holds the settings for one processing run.
type Config struct {
	// BaseDir is the directory holding the experiment subdirectories.
	BaseDir string

	// Folders names the experiments to process: one for a single
	// report, two for a side-by-side comparison. When empty, the
	// subdirectories of BaseDir are discovered and the first two are
	// compared.
	Folders []string

	// Sequential disables the worker pool and processes files in
	// discovery order.
	Sequential bool

	// NoRemap skips regridding, so only native-grid plots are made.
	NoRemap bool

	// Resolution is the regrid cell size in degrees.
	Resolution float64

	// MaxFiles caps the number of files read per experiment; zero
	// means no limit.
	MaxFiles int

	// Timestep is the zero-based time index to plot from files with a
	// time axis.
	Timestep int

	// Verbose enables debug output, including memory statistics
	// around the batch.
	Verbose bool
}

// OutputDir returns the directory the report is written to.
func (c *Config) OutputDir() string {
	return filepath.Join(c.BaseDir, OutputDirName)
}

// ImagesDir returns the directory the rendered images are written to.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.OutputDir(), "images")
}

// Run executes a complete processing run: experiment and file
// discovery, batch rendering, and report generation. Per-file failures
// are logged and skipped; the returned error is non-nil only when the
// run as a whole cannot produce a report. If log is nil the standard
// logger is used.
func Run(cfg *Config, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	experiments := cfg.Folders
	if len(experiments) > 2 {
		return fmt.Errorf("fluxplot: at most two experiments can be compared; got %d", len(experiments))
	}
	if len(experiments) == 0 {
		all, err := DiscoverExperiments(cfg.BaseDir)
		if err != nil {
			return err
		}
		switch {
		case len(all) == 0:
			return fmt.Errorf("fluxplot: no experiment directories in %s", cfg.BaseDir)
		case len(all) == 1:
			experiments = all
		default:
			experiments = all[:2]
		}
		log.WithField("experiments", experiments).Info("discovered experiments")
	}

	var files []*FluxFile
	var kept []string
	for _, exp := range experiments {
		ff, err := DiscoverFiles(cfg.BaseDir, exp, cfg.MaxFiles)
		if err != nil {
			log.WithError(err).Warn("skipping experiment")
			continue
		}
		log.WithFields(logrus.Fields{"experiment": exp, "files": len(ff)}).Info("discovered flux files")
		kept = append(kept, exp)
		files = append(files, ff...)
	}
	if len(kept) == 0 {
		return fmt.Errorf("fluxplot: no readable experiment directories in %s", cfg.BaseDir)
	}

	if err := os.MkdirAll(cfg.ImagesDir(), 0755); err != nil {
		return fmt.Errorf("fluxplot: creating output directory: %v", err)
	}

	results := NewBatch(cfg, log).Process(files)

	if err := WriteReport(cfg, kept, results); err != nil {
		return err
	}
	log.WithField("report", filepath.Join(cfg.OutputDir(), ReportFileName)).Info("wrote overview report")
	return nil
}
