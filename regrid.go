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
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"runtime"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// spatialIndexThreshold is the number of source points above which
// nearest-neighbor lookups go through an R-tree instead of a linear
// scan. Below it the scan is faster and allocates nothing.
const spatialIndexThreshold = 4096

// indexCacheEntries is the number of spatial indexes kept in memory.
// The files of an experiment share a handful of source grids, so a
// small cache avoids rebuilding the index for every file.
const indexCacheEntries = 8

// RegularGrid is a regular latitude-longitude grid. Cell (j,i) is
// centered at (LonMin+(i+0.5)*Resolution, LatMin+(j+0.5)*Resolution),
// so row 0 is the southernmost row.
type RegularGrid struct {
	LonMin, LatMin float64
	Resolution     float64
	Ny, Nx         int
}

// NewRegularGrid returns the regular grid with the given cell size in
// degrees that spans the extent of the given coordinates.
func NewRegularGrid(lon, lat []float64, resolution float64) (*RegularGrid, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("fluxplot: regrid resolution must be positive; got %g", resolution)
	}
	if len(lon) == 0 || len(lat) == 0 {
		return nil, fmt.Errorf("fluxplot: cannot create a grid from empty coordinates")
	}
	g := &RegularGrid{
		LonMin:     floats.Min(lon),
		LatMin:     floats.Min(lat),
		Resolution: resolution,
	}
	g.Nx = int(math.Ceil((floats.Max(lon) - g.LonMin) / resolution))
	g.Ny = int(math.Ceil((floats.Max(lat) - g.LatMin) / resolution))
	if g.Nx < 1 {
		g.Nx = 1
	}
	if g.Ny < 1 {
		g.Ny = 1
	}
	return g, nil
}

// Center returns the coordinates of the center of cell (j,i).
func (g *RegularGrid) Center(j, i int) (lon, lat float64) {
	return g.LonMin + (float64(i)+0.5)*g.Resolution, g.LatMin + (float64(j)+0.5)*g.Resolution
}

// RegriddedField is a flux field resampled onto a regular grid.
type RegriddedField struct {
	Grid *RegularGrid

	// Data has shape [Grid.Ny, Grid.Nx] with row 0 at the southern
	// edge. Every element is the value of the nearest source point.
	Data *sparse.DenseArray
}

// Regridder resamples scattered flux fields onto regular grids using
// nearest-neighbor assignment. Distances are planar in degree space;
// near the poles and the antimeridian this differs from the
// great-circle neighbor, which is accepted for flux inspection
// purposes. The zero value is ready to use and is safe for concurrent
// use by multiple goroutines.
type Regridder struct {
	indexInit  sync.Once
	indexCache *requestcache.Cache
}

type indexRequest struct {
	lon, lat []float64
}

// Regrid resamples sample onto grid. Each target cell receives the
// value of the source point nearest to its center, with ties broken
// toward the lowest source index so that repeated calls give identical
// results.
func (rg *Regridder) Regrid(sample *FieldSample, grid *RegularGrid) (*RegriddedField, error) {
	if len(sample.Lon) == 0 {
		return nil, fmt.Errorf("fluxplot: regridding %s: field has no points", sample.File.Variable)
	}
	rg.indexInit.Do(func() {
		rg.indexCache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(indexRequest)
			return newPointIndex(r.lon, r.lat), nil
		}, runtime.GOMAXPROCS(-1),
			requestcache.Deduplicate(), requestcache.Memory(indexCacheEntries))
	})
	req := rg.indexCache.NewRequest(context.TODO(),
		indexRequest{lon: sample.Lon, lat: sample.Lat},
		coordKey(sample.Lon, sample.Lat))
	result, err := req.Result()
	if err != nil {
		return nil, fmt.Errorf("fluxplot: regridding %s: %v", sample.File.Variable, err)
	}
	idx := result.(*pointIndex)

	out := sparse.ZerosDense(grid.Ny, grid.Nx)
	for j := 0; j < grid.Ny; j++ {
		for i := 0; i < grid.Nx; i++ {
			lon, lat := grid.Center(j, i)
			out.Elements[j*grid.Nx+i] = sample.Data.Elements[idx.nearest(lon, lat, grid.Resolution)]
		}
	}
	return &RegriddedField{Grid: grid, Data: out}, nil
}

// gridPoint is one source point in the spatial index.
type gridPoint struct {
	geom.Point
	i int
}

// pointIndex answers nearest-point queries for one set of source
// coordinates. Small point sets are scanned directly; larger ones are
// indexed so that lookups stay cheap without ever materializing a
// pairwise distance matrix.
type pointIndex struct {
	lon, lat []float64
	tree     *rtree.Rtree
}

func newPointIndex(lon, lat []float64) *pointIndex {
	idx := &pointIndex{lon: lon, lat: lat}
	if len(lon) >= spatialIndexThreshold {
		idx.tree = rtree.NewTree(25, 50)
		for i := range lon {
			idx.tree.Insert(&gridPoint{Point: geom.Point{X: lon[i], Y: lat[i]}, i: i})
		}
	}
	return idx
}

// nearest returns the index of the source point closest to (lon,lat).
// r0 sets the initial search window for the indexed path; it grows
// until a definitive neighbor is found.
func (idx *pointIndex) nearest(lon, lat, r0 float64) int {
	if idx.tree == nil {
		best, bestD := -1, math.Inf(1)
		for i := range idx.lon {
			dx, dy := idx.lon[i]-lon, idx.lat[i]-lat
			if d := dx*dx + dy*dy; d < bestD {
				best, bestD = i, d
			}
		}
		return best
	}
	p := geom.Point{X: lon, Y: lat}
	for r := r0; ; r *= 2 {
		best, bestD := idx.scanRect(p, r)
		if best < 0 {
			continue
		}
		if bestD <= r*r {
			// Nothing outside the search box can be closer than a hit
			// within its inradius.
			return best
		}
		// A closer point could sit just outside the box; one pass at
		// the exact hit distance settles it.
		best, _ = idx.scanRect(p, math.Sqrt(bestD))
		return best
	}
}

// scanRect returns the closest indexed point within the box p±r and
// its squared distance.
func (idx *pointIndex) scanRect(p geom.Point, r float64) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for _, s := range idx.tree.SearchIntersect(rtree.ToRect(p, r)) {
		gp := s.(*gridPoint)
		dx, dy := gp.X-p.X, gp.Y-p.Y
		d := dx*dx + dy*dy
		if d < bestD || (d == bestD && gp.i < best) {
			best, bestD = gp.i, d
		}
	}
	return best, bestD
}

// coordKey digests a set of coordinates into a cache key.
func coordKey(lon, lat []float64) string {
	h := fnv.New64a()
	var buf [8]byte
	for _, s := range [][]float64{lon, lat} {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		for _, v := range s {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return fmt.Sprintf("grid_%x", h.Sum64())
}
