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
	"math"
	"os"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// FieldSample is one flux field read from a NetCDF file at a single
// timestep. Data holds the field values in row-major order; Lon and
// Lat are flattened coordinate slices parallel to Data.Elements.
type FieldSample struct {
	File *FluxFile

	// Data is the field at the selected timestep, with rank 1 for
	// unstructured grids and rank 2 for curvilinear or regular grids.
	Data *sparse.DenseArray

	// Lon and Lat hold the coordinate of each element of Data, in
	// degrees with longitude normalized to [-180,180].
	Lon, Lat []float64

	// Units and LongName are the values of the corresponding variable
	// attributes, or empty strings when the file doesn't have them.
	Units, LongName string
}

// Label returns a human-readable name for the field.
func (s *FieldSample) Label() string {
	if s.LongName != "" {
		return s.LongName
	}
	return s.File.Variable
}

// coordVarNames are variable names that hold coordinates or axis
// bookkeeping rather than flux values.
var coordVarNames = map[string]struct{}{
	"lon": {}, "longitude": {}, "nav_lon": {},
	"lat": {}, "latitude": {}, "nav_lat": {},
	"x": {}, "y": {}, "time": {}, "depth": {}, "level": {},
}

var lonVarNames = []string{"lon", "longitude", "nav_lon"}
var latVarNames = []string{"lat", "latitude", "nav_lat"}

// LoadField reads the primary flux variable of file at the given
// zero-based timestep, together with its coordinate arrays. Files
// without a time axis ignore the timestep; a timestep beyond the
// records in the file is an error. Failures are reported as LoadError
// or ShapeMismatch so that callers can skip the file and continue.
func LoadField(file *FluxFile, timestep int) (*FieldSample, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, LoadError{Path: file.Path, Err: err}
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		return nil, LoadError{Path: file.Path, Err: err}
	}

	v, err := primaryVariable(nc.Header)
	if err != nil {
		return nil, LoadError{Path: file.Path, Err: err}
	}
	data, err := readField(nc, f, v, timestep)
	if err != nil {
		return nil, LoadError{Path: file.Path, Err: err}
	}

	lon, lonDims, err := readCoord(nc, lonVarNames)
	if err != nil {
		return nil, LoadError{Path: file.Path, Err: err}
	}
	lat, latDims, err := readCoord(nc, latVarNames)
	if err != nil {
		return nil, LoadError{Path: file.Path, Err: err}
	}

	sample := &FieldSample{
		File:     file,
		Units:    attrString(nc.Header, v, "units"),
		LongName: attrString(nc.Header, v, "long_name"),
	}
	if err := sample.place(file.Path, data, lon, lonDims, lat, latDims); err != nil {
		return nil, err
	}

	// Non-finite values carry no flux.
	for i, val := range sample.Data.Elements {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			sample.Data.Elements[i] = 0
		}
	}
	for i, val := range sample.Lon {
		if val > 180 {
			sample.Lon[i] = val - 360
		}
	}
	return sample, nil
}

// primaryVariable returns the name of the first variable in file order
// that holds field values: not a coordinate variable, not a dimension,
// and not an axis-bounds helper.
func primaryVariable(h *cdf.Header) (string, error) {
	dims := make(map[string]struct{})
	for _, d := range h.Dimensions("") {
		dims[d] = struct{}{}
	}
	for _, v := range h.Variables() {
		lv := strings.ToLower(v)
		if _, ok := dims[v]; ok {
			continue
		}
		if _, ok := coordVarNames[lv]; ok {
			continue
		}
		if strings.HasSuffix(lv, "_bnds") || strings.HasSuffix(lv, "_bounds") {
			continue
		}
		if len(h.Lengths(v)) == 0 { // scalar
			continue
		}
		return v, nil
	}
	return "", fmt.Errorf("no flux variable in file")
}

// readField reads variable v at the given timestep and returns it with
// at most two dimensions. The leading dimension is treated as a time
// axis when it is the record dimension or its name contains "time".
func readField(nc *cdf.File, f *os.File, v string, timestep int) (*sparse.DenseArray, error) {
	dims := nc.Header.Lengths(v)
	dimNames := nc.Header.Dimensions(v)

	if hasTimeAxis(dims, dimNames) {
		nt := dims[0]
		if nt == 0 { // record dimension: count records from the file size
			fi, err := f.Stat()
			if err != nil {
				return nil, err
			}
			nt = int(nc.Header.NumRecs(fi.Size()))
		}
		if timestep < 0 || timestep >= nt {
			return nil, fmt.Errorf("timestep %d out of range: variable %s has %d timesteps", timestep, v, nt)
		}
		dims = dims[1:]
		nread := 1
		for _, d := range dims {
			nread *= d
		}
		start, end := make([]int, len(dims)+1), make([]int, len(dims)+1)
		start[0], end[0] = timestep, timestep+1
		r := nc.Reader(v, start, end)
		buf := r.Zero(nread)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("reading variable %s: %v", v, err)
		}
		return denseFromBuffer(buf, dims)
	}

	r := nc.Reader(v, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", v, err)
	}
	data, err := denseFromBuffer(buf, dims)
	if err != nil {
		return nil, err
	}
	// Stacked component fields keep a short leading dimension; the
	// first slice is the flux.
	if len(data.Shape) == 3 && data.Shape[0] <= 2 {
		sub := sparse.ZerosDense(data.Shape[1], data.Shape[2])
		copy(sub.Elements, data.Elements[:len(sub.Elements)])
		data = sub
	}
	return data, nil
}

func hasTimeAxis(dims []int, dimNames []string) bool {
	if len(dims) == 0 {
		return false
	}
	return dims[0] == 0 || strings.Contains(strings.ToLower(dimNames[0]), "time")
}

// readCoord reads the first coordinate variable matching one of names
// and returns its values and dimension lengths.
func readCoord(nc *cdf.File, names []string) ([]float64, []int, error) {
	for _, want := range names {
		for _, v := range nc.Header.Variables() {
			if strings.ToLower(v) != want {
				continue
			}
			dims := nc.Header.Lengths(v)
			r := nc.Reader(v, nil, nil)
			buf := r.Zero(-1)
			if _, err := r.Read(buf); err != nil {
				return nil, nil, fmt.Errorf("reading coordinate %s: %v", v, err)
			}
			vals, err := bufferToFloats(buf)
			if err != nil {
				return nil, nil, fmt.Errorf("reading coordinate %s: %v", v, err)
			}
			return vals, dims, nil
		}
	}
	return nil, nil, fmt.Errorf("no coordinate variable named %v in file", names)
}

// place combines the field values with their coordinates, expanding
// one-dimensional axes to a mesh, reshaping unstructured fields to the
// coordinate shape, or truncating ragged arrays to a common length.
func (s *FieldSample) place(path string, data *sparse.DenseArray, lon []float64, lonDims []int, lat []float64, latDims []int) error {
	switch len(data.Shape) {
	case 2:
		ny, nx := data.Shape[0], data.Shape[1]
		switch {
		case len(lonDims) == 1 && len(latDims) == 1 && len(lon) == nx && len(lat) == ny:
			// Regular grid with independent axes.
			mlon := make([]float64, ny*nx)
			mlat := make([]float64, ny*nx)
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					mlon[j*nx+i] = lon[i]
					mlat[j*nx+i] = lat[j]
				}
			}
			s.Data, s.Lon, s.Lat = data, mlon, mlat
		case len(lon) == ny*nx && len(lat) == ny*nx:
			// Curvilinear grid with full coordinate fields.
			s.Data, s.Lon, s.Lat = data, lon, lat
		default:
			return ShapeMismatch{Path: path, DataShape: data.Shape, CoordShape: lonDims}
		}
	case 1:
		n := data.Shape[0]
		switch {
		case len(lonDims) == 2 && len(lon) == n && len(lat) == n:
			// Unstructured field stored flat; recover the grid shape
			// from the coordinates.
			shaped := sparse.ZerosDense(lonDims...)
			copy(shaped.Elements, data.Elements)
			s.Data, s.Lon, s.Lat = shaped, lon, lat
		case len(lonDims) == 1 && len(latDims) == 1:
			// Point cloud. The coupler sometimes pads one of the
			// arrays; use the common length.
			m := n
			if len(lon) < m {
				m = len(lon)
			}
			if len(lat) < m {
				m = len(lat)
			}
			if m == 0 {
				return ShapeMismatch{Path: path, DataShape: data.Shape, CoordShape: lonDims}
			}
			shaped := sparse.ZerosDense(m)
			copy(shaped.Elements, data.Elements[:m])
			s.Data, s.Lon, s.Lat = shaped, lon[:m], lat[:m]
		default:
			return ShapeMismatch{Path: path, DataShape: data.Shape, CoordShape: lonDims}
		}
	default:
		return LoadError{Path: path, Err: fmt.Errorf("field has %d dimensions after timestep selection; want 1 or 2", len(data.Shape))}
	}
	return nil
}

// denseFromBuffer copies a cdf read buffer into a DenseArray with the
// given shape.
func denseFromBuffer(buf interface{}, dims []int) (*sparse.DenseArray, error) {
	vals, err := bufferToFloats(buf)
	if err != nil {
		return nil, err
	}
	data := sparse.ZerosDense(dims...)
	if len(vals) < len(data.Elements) {
		return nil, fmt.Errorf("short read: %d values for shape %v", len(vals), dims)
	}
	copy(data.Elements, vals)
	return data, nil
}

func bufferToFloats(buf interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		vals := make([]float64, len(b))
		for i, v := range b {
			vals[i] = float64(v)
		}
		return vals, nil
	case []int32:
		vals := make([]float64, len(b))
		for i, v := range b {
			vals[i] = float64(v)
		}
		return vals, nil
	case []int16:
		vals := make([]float64, len(b))
		for i, v := range b {
			vals[i] = float64(v)
		}
		return vals, nil
	case []uint8:
		vals := make([]float64, len(b))
		for i, v := range b {
			vals[i] = float64(v)
		}
		return vals, nil
	default:
		return nil, fmt.Errorf("unsupported data type %T", buf)
	}
}

// attrString returns the named attribute of variable v as a string, or
// "" if the attribute is missing or not text.
func attrString(h *cdf.Header, v, name string) string {
	if s, ok := h.GetAttribute(v, name).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
