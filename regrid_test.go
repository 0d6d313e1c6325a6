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
	"reflect"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
)

// scatterSample builds a rank-1 field from parallel coordinate and
// value slices.
func scatterSample(lon, lat, vals []float64) *FieldSample {
	data := sparse.ZerosDense(len(vals))
	copy(data.Elements, vals)
	return &FieldSample{
		File: &FluxFile{Variable: "q_net", Experiment: "exp1", Component: "ocean"},
		Data: data,
		Lon:  lon,
		Lat:  lat,
	}
}

func TestNewRegularGrid(t *testing.T) {
	tests := []struct {
		lon, lat   []float64
		resolution float64
		nx, ny     int
	}{
		{[]float64{0, 10}, []float64{0, 5}, 0.5, 20, 10},
		{[]float64{0, 10}, []float64{0, 5}, 0.25, 40, 20},
		{[]float64{0, 10}, []float64{0, 5}, 0.3, 34, 17},
		{[]float64{-180, 180}, []float64{-90, 90}, 1, 360, 180},
		{[]float64{42}, []float64{7}, 0.5, 1, 1}, // degenerate extent
	}
	for _, test := range tests {
		g, err := NewRegularGrid(test.lon, test.lat, test.resolution)
		if err != nil {
			t.Errorf("resolution %g: %v", test.resolution, err)
			continue
		}
		if g.Nx != test.nx || g.Ny != test.ny {
			t.Errorf("resolution %g: have %dx%d, want %dx%d",
				test.resolution, g.Nx, g.Ny, test.nx, test.ny)
		}
	}

	// A finer resolution never shrinks the grid.
	coarse, err := NewRegularGrid([]float64{0, 10}, []float64{0, 5}, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	fine, err := NewRegularGrid([]float64{0, 10}, []float64{0, 5}, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if fine.Nx < coarse.Nx || fine.Ny < coarse.Ny {
		t.Errorf("finer grid %dx%d smaller than coarser %dx%d",
			fine.Nx, fine.Ny, coarse.Nx, coarse.Ny)
	}

	if _, err := NewRegularGrid([]float64{0, 1}, []float64{0, 1}, 0); err == nil {
		t.Error("zero resolution: want error, have nil")
	}
	if _, err := NewRegularGrid([]float64{0, 1}, []float64{0, 1}, -0.5); err == nil {
		t.Error("negative resolution: want error, have nil")
	}
	if _, err := NewRegularGrid(nil, nil, 0.5); err == nil {
		t.Error("empty coordinates: want error, have nil")
	}
}

func TestRegularGridCenter(t *testing.T) {
	g := &RegularGrid{LonMin: -10, LatMin: 40, Resolution: 0.5, Ny: 4, Nx: 4}
	if lon, lat := g.Center(0, 0); lon != -9.75 || lat != 40.25 {
		t.Errorf("cell (0,0): have (%g,%g), want (-9.75,40.25)", lon, lat)
	}
	if lon, lat := g.Center(3, 1); lon != -9.25 || lat != 41.75 {
		t.Errorf("cell (3,1): have (%g,%g), want (-9.25,41.75)", lon, lat)
	}
}

func TestRegridNearest(t *testing.T) {
	// Four corner points; each target cell center has one obvious
	// nearest neighbor.
	sample := scatterSample(
		[]float64{0, 2, 0, 2},
		[]float64{0, 0, 2, 2},
		[]float64{1, 2, 3, 4},
	)
	grid, err := NewRegularGrid(sample.Lon, sample.Lat, 1)
	if err != nil {
		t.Fatal(err)
	}
	var rg Regridder
	field, err := rg.Regrid(sample, grid)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(field.Data.Shape, []int{2, 2}) {
		t.Fatalf("shape: have %v, want [2 2]", field.Data.Shape)
	}
	// Row 0 is the southern row.
	if want := []float64{1, 2, 3, 4}; !reflect.DeepEqual(field.Data.Elements, want) {
		t.Errorf("elements: have %v, want %v", field.Data.Elements, want)
	}
}

func TestRegridIdempotent(t *testing.T) {
	n := 50
	lon := make([]float64, n)
	lat := make([]float64, n)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		lon[i] = float64((i*37)%100) / 5
		lat[i] = float64((i*53)%100) / 5
		vals[i] = float64(i)
	}
	sample := scatterSample(lon, lat, vals)
	grid, err := NewRegularGrid(lon, lat, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	var rg Regridder
	first, err := rg.Regrid(sample, grid)
	if err != nil {
		t.Fatal(err)
	}
	second, err := rg.Regrid(sample, grid)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Data.Elements, second.Data.Elements) {
		t.Error("regridding the same field twice gave different results")
	}
}

func TestRegridRangePreserving(t *testing.T) {
	allowed := []float64{1, 2, 3, 7}
	n := 40
	lon := make([]float64, n)
	lat := make([]float64, n)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		lon[i] = float64((i*71)%90) / 3
		lat[i] = float64((i*31)%60) / 3
		vals[i] = allowed[i%len(allowed)]
	}
	sample := scatterSample(lon, lat, vals)
	grid, err := NewRegularGrid(lon, lat, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	var rg Regridder
	field, err := rg.Regrid(sample, grid)
	if err != nil {
		t.Fatal(err)
	}
	ok := make(map[float64]bool)
	for _, v := range allowed {
		ok[v] = true
	}
	for k, v := range field.Data.Elements {
		if !ok[v] {
			t.Errorf("cell %d: value %g not among the input values", k, v)
		}
	}
}

func TestRegridTieBreak(t *testing.T) {
	// Two source points equidistant from the cell center; the lower
	// index wins so that results are reproducible.
	sample := scatterSample(
		[]float64{0, 1},
		[]float64{0, 0},
		[]float64{5, 9},
	)
	grid, err := NewRegularGrid(sample.Lon, sample.Lat, 1)
	if err != nil {
		t.Fatal(err)
	}
	var rg Regridder
	field, err := rg.Regrid(sample, grid)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(field.Data.Elements, []float64{5}) {
		t.Errorf("elements: have %v, want [5]", field.Data.Elements)
	}
}

func TestPointIndexAgreement(t *testing.T) {
	// The linear scan and the R-tree must choose the same neighbor,
	// including for duplicated source points.
	n := 200
	lon := make([]float64, n)
	lat := make([]float64, n)
	for i := 0; i < n; i++ {
		lon[i] = float64((i*7919)%3600) / 10
		lat[i] = float64((i*104729)%1700)/10 - 85
	}
	lon[50], lat[50] = lon[10], lat[10]
	lon[150], lat[150] = lon[10], lat[10]

	linear := newPointIndex(lon, lat)
	if linear.tree != nil {
		t.Fatalf("%d points should stay below the index threshold", n)
	}
	indexed := &pointIndex{lon: lon, lat: lat, tree: rtree.NewTree(25, 50)}
	for i := range lon {
		indexed.tree.Insert(&gridPoint{Point: geom.Point{X: lon[i], Y: lat[i]}, i: i})
	}

	grid, err := NewRegularGrid(lon, lat, 10)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < grid.Ny; j++ {
		for i := 0; i < grid.Nx; i++ {
			plon, plat := grid.Center(j, i)
			a := linear.nearest(plon, plat, grid.Resolution)
			b := indexed.nearest(plon, plat, grid.Resolution)
			if a != b {
				t.Errorf("probe (%g,%g): linear scan chose %d, index chose %d",
					plon, plat, a, b)
			}
		}
	}
}

func TestCoordKey(t *testing.T) {
	a := coordKey([]float64{1, 2}, []float64{3, 4})
	if b := coordKey([]float64{1, 2}, []float64{3, 4}); b != a {
		t.Error("equal coordinates gave different keys")
	}
	if b := coordKey([]float64{1, 2}, []float64{3, 5}); b == a {
		t.Error("different coordinates gave the same key")
	}
	// The length prefix keeps values from sliding between the two
	// slices.
	if coordKey([]float64{1, 2, 3}, []float64{4}) == coordKey([]float64{1, 2}, []float64{3, 4}) {
		t.Error("shifted slice boundary gave the same key")
	}
}
