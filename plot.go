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
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/carto"
	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// mapWidth is the pixel width of rendered maps. Regridded rasters
// narrower than this are enlarged by an integer factor so that cells
// stay uniform.
const mapWidth = 800

var divergingVars = []string{"temp", "tsurf", "sst", "t2m"}
var sequentialVars = []string{"prec", "rain", "snow", "evap", "runoff"}

// colorScheme returns the color scale for the named flux variable:
// diverging cool/warm for temperature-like fields, positive-only for
// precipitation-like fields, and a full-spectrum default otherwise.
func colorScheme(variable string) carto.Colorlist {
	v := strings.ToLower(variable)
	for _, s := range divergingVars {
		if strings.Contains(v, s) {
			return carto.Optimized
		}
	}
	for _, s := range sequentialVars {
		if strings.Contains(v, s) {
			return carto.JetPosOnly
		}
	}
	return carto.Jet
}

func newColorMap(sample *FieldSample, data []float64) *carto.ColorMap {
	cmap := carto.NewColorMap(carto.Linear)
	cmap.ColorScheme = colorScheme(sample.File.Variable)
	cmap.AddArray(data)
	cmap.Set()
	return cmap
}

// RenderNative draws the field on its native grid, one marker per
// source point, and writes the map with its color bar to w as a PNG.
func RenderNative(sample *FieldSample, w io.Writer) error {
	if len(sample.Lon) == 0 {
		return fmt.Errorf("field has no points")
	}
	cmap := newColorMap(sample, sample.Data.Elements)

	W, E := floats.Min(sample.Lon), floats.Max(sample.Lon)
	S, N := floats.Min(sample.Lat), floats.Max(sample.Lat)
	// Pad the extent so edge markers are not clipped and degenerate
	// extents still make a drawable canvas.
	padX, padY := 0.02*(E-W), 0.02*(N-S)
	if padX == 0 {
		padX = 0.5
	}
	if padY == 0 {
		padY = 0.5
	}
	m := carto.NewRasterMap(N+padY, S-padY, E+padX, W-padX, mapWidth)

	var markerGlyph draw.GlyphStyle
	markerGlyph.Shape = draw.BoxGlyph{}
	// Size the markers to roughly tile the canvas at the point density.
	cw := float64(m.Max.X - m.Min.X)
	radius := 0.6 * cw / math.Sqrt(float64(len(sample.Lon)))
	if radius < 0.75 {
		radius = 0.75
	} else if radius > 8 {
		radius = 8
	}
	markerGlyph.Radius = vg.Length(radius)
	lineStyle := draw.LineStyle{Width: 1. * vg.Millimeter}

	for i := range sample.Lon {
		c := cmap.GetColor(sample.Data.Elements[i])
		markerGlyph.Color = c
		lineStyle.Color = c
		p := geom.Point{X: sample.Lon[i], Y: sample.Lat[i]}
		if err := m.DrawVector(p, c, lineStyle, markerGlyph); err != nil {
			return err
		}
	}
	return writeWithLegend(w, m.I, cmap, legendLabel(sample))
}

// RenderRegridded draws field as an equirectangular raster, one pixel
// block per grid cell, and writes the map with its color bar to w as a
// PNG. sample supplies the variable name and units for the labeling.
func RenderRegridded(field *RegriddedField, sample *FieldSample, w io.Writer) error {
	g := field.Grid
	cmap := newColorMap(sample, field.Data.Elements)
	// Row 0 of the data is the southern edge; flip so north is up.
	m := carto.NewCanvasFromRaster(g.LatMin, g.LonMin, g.Resolution, g.Resolution,
		g.Ny, g.Nx, field.Data.Elements, cmap, true, false)
	return writeWithLegend(w, upscale(m.I, mapWidth), cmap, legendLabel(sample))
}

func legendLabel(s *FieldSample) string {
	units := s.Units
	if units == "" {
		units = "unknown units"
	}
	return fmt.Sprintf("%v (%v)", s.File.Variable, units)
}

// upscale enlarges img by an integer factor until it is at least width
// pixels wide, keeping cell edges crisp.
func upscale(img *image.RGBA, width int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() >= width || b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	f := (width + b.Dx() - 1) / b.Dx()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*f, b.Dy()*f))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), img, b, xdraw.Src, nil)
	return out
}

// writeWithLegend stacks the color bar under the map image and writes
// the combined PNG to w.
func writeWithLegend(w io.Writer, m *image.RGBA, cmap *carto.ColorMap, label string) error {
	const legendWidth = 6.2 * vg.Inch
	const legendHeight = legendWidth * 0.1067
	cmap.LegendWidth = legendWidth
	cmap.LegendHeight = legendHeight
	cmap.LineWidth = 0.5
	cmap.FontSize = 8

	c := vgimg.New(legendWidth, legendHeight)
	dc := draw.New(c)
	if err := cmap.Legend(&dc, label); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return err
	}
	legend, err := png.Decode(&buf)
	if err != nil {
		return err
	}

	mb, lb := m.Bounds(), legend.Bounds()
	lh := lb.Dy() * mb.Dx() / lb.Dx()
	out := image.NewRGBA(image.Rect(0, 0, mb.Dx(), mb.Dy()+lh))
	xdraw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.Draw(out, image.Rect(0, 0, mb.Dx(), mb.Dy()), m, mb.Min, xdraw.Over)
	xdraw.ApproxBiLinear.Scale(out, image.Rect(0, mb.Dy(), mb.Dx(), mb.Dy()+lh), legend, lb, xdraw.Over, nil)
	return png.Encode(w, out)
}
