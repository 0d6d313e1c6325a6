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

package fluxplotutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/cdf"
)

// tomlConfig mirrors the configuration file options.
type tomlConfig struct {
	Folder     string   `toml:"folder,omitempty"`
	Compare    []string `toml:"compare,omitempty"`
	Sequential bool     `toml:"sequential,omitempty"`
	NoRemap    bool     `toml:"no-remap,omitempty"`
	Resolution float64  `toml:"resolution,omitempty"`
	MaxFiles   int      `toml:"max-files,omitempty"`
	Timestep   int      `toml:"timestep"`
}

// writeConfig writes a configuration file fixture.
func writeConfig(t *testing.T, path string, cfg tomlConfig) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		t.Fatal(err)
	}
}

// writeFluxNC writes an unstructured NetCDF flux fixture with nt
// timesteps and n cells. The variable is named after the file.
func writeFluxNC(t *testing.T, path string, nt, n int) {
	t.Helper()
	name := strings.TrimSuffix(filepath.Base(path), ".nc")
	h := cdf.NewHeader([]string{"time", "ncells"}, []int{nt, n})
	h.AddVariable("lon", []string{"ncells"}, []float64{0})
	h.AddVariable("lat", []string{"ncells"}, []float64{0})
	h.AddVariable(name, []string{"time", "ncells"}, []float32{0})
	h.Define()

	lon := make([]float64, n)
	lat := make([]float64, n)
	for i := 0; i < n; i++ {
		lon[i] = float64(3 * i)
		lat[i] = float64(2 * i)
	}
	vals := make([]float32, nt*n)
	for k := range vals {
		vals[k] = float32(k)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	nc, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []struct {
		name string
		vals interface{}
	}{{"lon", lon}, {"lat", lat}, {name, vals}} {
		end := nc.Header.Lengths(v.name)
		start := make([]int, len(end))
		if _, err := nc.Writer(v.name, start, end).Write(v.vals); err != nil {
			t.Fatalf("writing fixture variable %s: %v", v.name, err)
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		t.Fatal(err)
	}
}

func TestCheckFolders(t *testing.T) {
	cases := []struct {
		folder  string
		compare []string
		want    []string
		wantErr bool
	}{
		{folder: "", compare: nil, want: nil},
		{folder: "expA", want: []string{"expA"}},
		{compare: []string{"expA", "expB"}, want: []string{"expA", "expB"}},
		{folder: "expA", compare: []string{"expB", "expC"}, wantErr: true},
		{compare: []string{"expA"}, wantErr: true},
		{compare: []string{"expA", "expB", "expC"}, wantErr: true},
	}
	for _, c := range cases {
		have, err := checkFolders(c.folder, c.compare)
		if c.wantErr {
			if err == nil {
				t.Errorf("folder %q compare %v: want error, have nil", c.folder, c.compare)
			}
			continue
		}
		if err != nil {
			t.Errorf("folder %q compare %v: %v", c.folder, c.compare, err)
			continue
		}
		if !reflect.DeepEqual(have, c.want) {
			t.Errorf("folder %q compare %v: have %v, want %v", c.folder, c.compare, have, c.want)
		}
	}
}

func TestConfigFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "fluxplot")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfgPath := filepath.Join(dir, "fluxplot.toml")
	writeConfig(t, cfgPath, tomlConfig{
		Folder:     "expZ",
		NoRemap:    true,
		Resolution: 2.5,
		MaxFiles:   3,
		Timestep:   0,
	})

	Cfg.Set("config", cfgPath)
	defer Cfg.Set("config", "")
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}

	if have := Cfg.GetString("folder"); have != "expZ" {
		t.Errorf("folder: have %q, want \"expZ\"", have)
	}
	if !Cfg.GetBool("no-remap") {
		t.Error("no-remap: have false, want true")
	}
	if have := Cfg.GetFloat64("resolution"); have != 2.5 {
		t.Errorf("resolution: have %g, want 2.5", have)
	}
	if have := Cfg.GetInt("max-files"); have != 3 {
		t.Errorf("max-files: have %d, want 3", have)
	}
	// An explicit zero in the file beats the flag default of 1.
	if have := Cfg.GetInt("timestep"); have != 0 {
		t.Errorf("timestep: have %d, want 0", have)
	}
	// Options the file does not mention keep their flag defaults.
	if Cfg.GetBool("sequential") {
		t.Error("sequential: have true, want the default false")
	}
}

func TestConfigFileMissing(t *testing.T) {
	Cfg.Set("config", filepath.Join("testdata", "does-not-exist.toml"))
	defer Cfg.Set("config", "")
	if err := setConfig(); err == nil {
		t.Fatal("want error for missing configuration file, have nil")
	}
}

func TestRootComparison(t *testing.T) {
	dir, err := ioutil.TempDir("", "fluxplot")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	for _, exp := range []string{"expA", "expB"} {
		if err := os.Mkdir(filepath.Join(dir, exp), 0755); err != nil {
			t.Fatal(err)
		}
		writeFluxNC(t, filepath.Join(dir, exp, "q_net.nc"), 2, 6)
	}
	cfgPath := filepath.Join(dir, "fluxplot.toml")
	writeConfig(t, cfgPath, tomlConfig{
		Compare:    []string{"expA", "expB"},
		Sequential: true,
		Resolution: 4,
		Timestep:   0,
	})

	Cfg.Set("config", cfgPath)
	defer Cfg.Set("config", "")
	Root.SetArgs([]string{dir})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	report := filepath.Join(dir, "output", "overview.html")
	b, err := ioutil.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "expA vs expB") {
		t.Error("report title does not name the compared experiments")
	}
	for _, name := range []string{"expA_q_net.png", "expA_q_net_4deg.png", "expB_q_net.png"} {
		p := filepath.Join(dir, "output", "images", name)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing image %s: %v", name, err)
		}
	}
}

func TestRootResolutionValidation(t *testing.T) {
	dir, err := ioutil.TempDir("", "fluxplot")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfgPath := filepath.Join(dir, "fluxplot.toml")
	writeConfig(t, cfgPath, tomlConfig{Folder: "expA", Resolution: -1, Timestep: 1})

	Cfg.Set("config", cfgPath)
	defer Cfg.Set("config", "")
	Root.SetArgs([]string{dir})
	err = Root.Execute()
	if err == nil {
		t.Fatal("want error for a negative resolution, have nil")
	}
	if !strings.Contains(err.Error(), "resolution must be positive") {
		t.Errorf("error %q does not mention the resolution", err)
	}
}
