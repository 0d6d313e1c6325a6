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

import "fmt"

// DiscoveryError is returned when an experiment directory cannot be
// listed. The affected experiment is skipped; other experiments in the
// same run are unaffected.
type DiscoveryError struct {
	Folder string
	Err    error
}

func (e DiscoveryError) Error() string {
	return fmt.Sprintf("fluxplot: discovering flux files in %s: %v", e.Folder, e.Err)
}

func (e DiscoveryError) Unwrap() error { return e.Err }

// LoadError is returned when a flux file cannot be read or does not
// contain a usable field at the requested timestep. The affected file
// is skipped; the rest of the batch continues.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("fluxplot: loading %s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// ShapeMismatch is returned when the element count of a field does not
// match the element count of its coordinate arrays, so the values
// cannot be placed on the grid. The affected file is skipped.
type ShapeMismatch struct {
	Path       string
	DataShape  []int
	CoordShape []int
}

func (e ShapeMismatch) Error() string {
	return fmt.Sprintf("fluxplot: loading %s: data shape %v does not match coordinate shape %v",
		e.Path, e.DataShape, e.CoordShape)
}

// RenderError is returned when one plot cannot be drawn or written.
// Only that image is skipped; the other plot kind for the same file
// may still succeed.
type RenderError struct {
	Path string
	Err  error
}

func (e RenderError) Error() string {
	return fmt.Sprintf("fluxplot: rendering %s: %v", e.Path, e.Err)
}

func (e RenderError) Unwrap() error { return e.Err }

// ReportError is returned when the overview report cannot be
// generated. Unlike the per-file error types it is fatal: a run
// without a report has produced nothing to compare.
type ReportError struct {
	Path string
	Err  error
}

func (e ReportError) Error() string {
	return fmt.Sprintf("fluxplot: writing report %s: %v", e.Path, e.Err)
}

func (e ReportError) Unwrap() error { return e.Err }
