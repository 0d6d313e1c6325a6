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
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ReportFileName is the name of the overview report written to the
// output directory.
const ReportFileName = "overview.html"

type reportData struct {
	Title     string
	Tabs      []reportTab
	Skipped   []reportSkip
	Generated string
}

type reportTab struct {
	ID      string
	Label   string
	Columns []string
	Rows    []reportRow
}

type reportRow struct {
	Variable  string
	Component string
	Cells     []reportCell
}

// reportCell holds one image reference; an empty Image renders as an
// explicit "missing" placeholder so absent fields stay visible.
type reportCell struct {
	Image string
}

type reportSkip struct {
	Experiment string
	File       string
	Reason     string
}

// WriteReport assembles the overview report for the given manifest and
// writes it to the output directory. A manifest without a single
// rendered image produces a ReportError, as does a failure to write
// the file itself.
func WriteReport(cfg *Config, experiments []string, results []Result) error {
	p := filepath.Join(cfg.OutputDir(), ReportFileName)
	data, err := buildReport(cfg, experiments, results)
	if err != nil {
		return ReportError{Path: p, Err: err}
	}
	f, err := os.Create(p)
	if err != nil {
		return ReportError{Path: p, Err: err}
	}
	if err := reportTemplate.Execute(f, data); err != nil {
		f.Close()
		return ReportError{Path: p, Err: err}
	}
	if err := f.Close(); err != nil {
		return ReportError{Path: p, Err: err}
	}
	return nil
}

// buildReport arranges the manifest into rows and tabs. In
// single-experiment mode there is one view with a column per plot
// kind; in comparison mode there is a tab per plot kind with a column
// per experiment.
func buildReport(cfg *Config, experiments []string, results []Result) (*reportData, error) {
	byVar := make(map[string]map[string]*Result)
	var variables []string
	images := 0
	var skipped []reportSkip
	for i := range results {
		r := &results[i]
		if r.NativeImage != "" {
			images++
		}
		if r.RemapImage != "" {
			images++
		}
		if r.Err != nil {
			skipped = append(skipped, reportSkip{
				Experiment: r.File.Experiment,
				File:       filepath.Base(r.File.Path),
				Reason:     r.Err.Error(),
			})
		}
		if _, ok := byVar[r.File.Variable]; !ok {
			byVar[r.File.Variable] = make(map[string]*Result)
			variables = append(variables, r.File.Variable)
		}
		byVar[r.File.Variable][r.File.Experiment] = r
	}
	if images == 0 {
		return nil, fmt.Errorf("no images were rendered")
	}
	sort.Strings(variables)

	data := &reportData{Generated: time.Now().Format(time.RFC1123)}
	remapLabel := fmt.Sprintf("Regridded (%s°)", formatResolution(cfg.Resolution))
	if len(experiments) < 2 {
		data.Title = fmt.Sprintf("Flux fields: %s", experiments[0])
		tab := reportTab{ID: "overview", Label: "Overview", Columns: []string{"Native"}}
		if !cfg.NoRemap {
			tab.Columns = append(tab.Columns, remapLabel)
		}
		for _, v := range variables {
			r := byVar[v][experiments[0]]
			row := reportRow{Variable: v, Component: r.File.Component}
			row.Cells = append(row.Cells, reportCell{Image: r.NativeImage})
			if !cfg.NoRemap {
				row.Cells = append(row.Cells, reportCell{Image: r.RemapImage})
			}
			tab.Rows = append(tab.Rows, row)
		}
		data.Tabs = []reportTab{tab}
		return data, nil
	}

	data.Title = fmt.Sprintf("Flux comparison: %s vs %s", experiments[0], experiments[1])
	kinds := []struct {
		id, label string
		image     func(*Result) string
	}{
		{"standard", "Standard", func(r *Result) string { return r.NativeImage }},
	}
	if !cfg.NoRemap {
		kinds = append(kinds, struct {
			id, label string
			image     func(*Result) string
		}{"remapped", remapLabel, func(r *Result) string { return r.RemapImage }})
	}
	for _, k := range kinds {
		tab := reportTab{ID: k.id, Label: k.label, Columns: experiments}
		for _, v := range variables {
			row := reportRow{Variable: v}
			for _, exp := range experiments {
				var cell reportCell
				if r, ok := byVar[v][exp]; ok {
					cell.Image = k.image(r)
					row.Component = r.File.Component
				}
				row.Cells = append(row.Cells, cell)
			}
			tab.Rows = append(tab.Rows, row)
		}
		data.Tabs = append(data.Tabs, tab)
	}
	return data, nil
}

var reportTemplate = template.Must(template.New("overview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 20px; background: #fafafa; }
h1 { font-size: 22px; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: center; vertical-align: top; }
th { background: #eee; }
img { max-width: 640px; height: auto; }
.missing { color: #999; font-style: italic; padding: 40px; }
.tab { border-bottom: 1px solid #ccc; margin-bottom: 12px; }
.tab button { background: #eee; border: none; padding: 10px 16px; cursor: pointer; font-size: 15px; }
.tab button.active { background: #ccc; }
.pane { display: none; }
.pane.active { display: block; }
.skipped { margin-top: 30px; }
.skipped li { color: #a33; }
footer { margin-top: 30px; color: #777; font-size: 12px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if gt (len .Tabs) 1}}<div class="tab">
{{range $i, $t := .Tabs}}<button class="tablink{{if eq $i 0}} active{{end}}" onclick="openTab(event, '{{$t.ID}}')">{{$t.Label}}</button>
{{end}}</div>
{{end}}{{range $i, $t := .Tabs}}<div id="{{$t.ID}}" class="pane{{if eq $i 0}} active{{end}}">
<table>
<tr><th>Variable</th>{{range $t.Columns}}<th>{{.}}</th>{{end}}</tr>
{{range $t.Rows}}<tr>
<td><b>{{.Variable}}</b><br>{{.Component}}</td>
{{range .Cells}}{{if .Image}}<td><a href="{{.Image}}"><img src="{{.Image}}" alt=""></a></td>
{{else}}<td><div class="missing">missing</div></td>
{{end}}{{end}}</tr>
{{end}}</table>
</div>
{{end}}{{if .Skipped}}<div class="skipped">
<h2>Skipped files</h2>
<ul>
{{range .Skipped}}<li><b>{{.Experiment}}/{{.File}}</b>: {{.Reason}}</li>
{{end}}</ul>
</div>
{{end}}<footer>Generated by FluxPlot on {{.Generated}}</footer>
{{if gt (len .Tabs) 1}}<script>
function openTab(evt, id) {
	var i, panes = document.getElementsByClassName("pane");
	for (i = 0; i < panes.length; i++) { panes[i].className = "pane"; }
	var links = document.getElementsByClassName("tablink");
	for (i = 0; i < links.length; i++) { links[i].className = "tablink"; }
	document.getElementById(id).className = "pane active";
	evt.currentTarget.className = "tablink active";
}
</script>
{{end}}</body>
</html>
`))
