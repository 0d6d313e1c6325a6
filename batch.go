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
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// Result is the manifest entry for one flux file. The report is built
// from these records rather than from directory listings, so image
// file names stay a human-readable convention instead of load-bearing
// state.
type Result struct {
	File *FluxFile

	// NativeImage and RemapImage are the rendered image locations
	// relative to the output directory, or empty if that plot kind was
	// not produced.
	NativeImage string
	RemapImage  string

	// Err is non-nil when the file was skipped or one of its plots
	// failed.
	Err error
}

// Batch renders a set of flux files into map images. A failure in one
// file is recorded in its Result and never cancels work on the others.
type Batch struct {
	Config *Config
	Log    logrus.FieldLogger

	regridder Regridder
}

// NewBatch returns a Batch with the given settings. If log is nil the
// standard logger is used.
func NewBatch(cfg *Config, log logrus.FieldLogger) *Batch {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Batch{Config: cfg, Log: log}
}

// Process renders every file and returns the manifest in the same
// order as files, regardless of how the work was scheduled. It returns
// after all workers have finished.
func (b *Batch) Process(files []*FluxFile) []Result {
	results := make([]Result, len(files))
	b.logMemory("start")
	if b.Config.Sequential || len(files) < 2 {
		for i, f := range files {
			results[i] = b.processOne(f, 0)
		}
	} else {
		nprocs := runtime.GOMAXPROCS(0)
		var wg sync.WaitGroup
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				defer wg.Done()
				for ii := pp; ii < len(files); ii += nprocs {
					results[ii] = b.processOne(files[ii], pp)
				}
			}(pp)
		}
		wg.Wait()
	}
	b.logMemory("done")

	rendered, skipped := 0, 0
	for _, r := range results {
		if r.NativeImage != "" || r.RemapImage != "" {
			rendered++
		}
		if r.Err != nil {
			skipped++
		}
	}
	b.Log.WithFields(logrus.Fields{"rendered": rendered, "with_errors": skipped}).Info("batch finished")
	return results
}

// processOne loads one file and renders both plot kinds. A panic in a
// rendering library is recovered and recorded as the file's error.
func (b *Batch) processOne(f *FluxFile, worker int) (res Result) {
	res.File = f
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("fluxplot: processing %s: %v", f.Path, r)
			b.Log.WithField("file", f.Path).WithError(res.Err).Error("recovered from panic")
		}
	}()
	log := b.Log.WithFields(logrus.Fields{
		"experiment": f.Experiment,
		"variable":   f.Variable,
		"component":  f.Component,
		"worker":     worker,
	})

	sample, err := LoadField(f, b.Config.Timestep)
	if err != nil {
		res.Err = err
		log.WithError(err).Warn("skipping file")
		return
	}

	name := fmt.Sprintf("%s_%s.png", f.Experiment, f.Variable)
	if err := b.writeImage(name, func(w io.Writer) error {
		return RenderNative(sample, w)
	}); err != nil {
		res.Err = RenderError{Path: name, Err: err}
		log.WithError(res.Err).Warn("native plot failed")
	} else {
		res.NativeImage = path.Join("images", name)
	}

	if !b.Config.NoRemap {
		rname := fmt.Sprintf("%s_%s_%sdeg.png", f.Experiment, f.Variable, formatResolution(b.Config.Resolution))
		if err := b.remap(sample, rname); err != nil {
			err = RenderError{Path: rname, Err: err}
			log.WithError(err).Warn("regridded plot failed")
			if res.Err == nil {
				res.Err = err
			}
		} else {
			res.RemapImage = path.Join("images", rname)
		}
	}

	if res.NativeImage != "" || res.RemapImage != "" {
		log.Info("rendered flux field")
	}
	b.logMemory(f.Variable)
	return
}

func (b *Batch) remap(sample *FieldSample, name string) error {
	grid, err := NewRegularGrid(sample.Lon, sample.Lat, b.Config.Resolution)
	if err != nil {
		return err
	}
	field, err := b.regridder.Regrid(sample, grid)
	if err != nil {
		return err
	}
	return b.writeImage(name, func(w io.Writer) error {
		return RenderRegridded(field, sample, w)
	})
}

// writeImage renders into the named file in the image directory,
// removing the file again if rendering fails partway.
func (b *Batch) writeImage(name string, render func(io.Writer) error) error {
	p := filepath.Join(b.Config.ImagesDir(), name)
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(p)
		return err
	}
	return f.Close()
}

// logMemory samples the runtime memory statistics when verbose output
// was requested.
func (b *Batch) logMemory(stage string) {
	if !b.Config.Verbose {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	b.Log.WithFields(logrus.Fields{
		"stage":    stage,
		"alloc_mb": m.Alloc / 1024 / 1024,
		"sys_mb":   m.Sys / 1024 / 1024,
		"num_gc":   m.NumGC,
	}).Debug("memory usage")
}

// formatResolution renders the grid resolution for use in image file
// names, with no trailing zeros.
func formatResolution(res float64) string {
	return strconv.FormatFloat(res, 'g', -1, 64)
}
