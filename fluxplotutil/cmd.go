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
	"fmt"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fluxplot"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to FluxPlot.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "folder",
			usage: `
              folder specifies a single experiment directory to plot. It
              cannot be combined with --compare.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "compare",
			usage: `
              compare specifies two experiment directories to plot side by
              side, separated by a comma.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "sequential",
			usage: `
              sequential disables parallel processing and handles the flux
              files one at a time in discovery order.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "no-remap",
			usage: `
              no-remap skips regridding, so only plots on the native model
              grids are created.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "resolution",
			usage: `
              resolution specifies the cell size of the regular grid used
              for regridded plots, in degrees.`,
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "max-files",
			usage: `
              max-files limits the number of flux files read from each
              experiment directory. The default of 0 reads all files.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "timestep",
			usage: `
              timestep specifies the zero-based time index to plot from
              files with a time axis.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "verbose",
			usage: `
              verbose enables debug output, including memory statistics.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FLUXPLOT")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("fluxplot: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// initLog configures the standard logger for terminal output.
func initLog(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// checkFolders combines the folder and compare options into the list
// of experiments to process.
func checkFolders(folder string, compare []string) ([]string, error) {
	if folder != "" && len(compare) > 0 {
		return nil, fmt.Errorf("fluxplot: the folder and compare options cannot be combined")
	}
	if folder != "" {
		return []string{folder}, nil
	}
	if len(compare) == 0 {
		return nil, nil
	}
	if len(compare) != 2 {
		return nil, fmt.Errorf("fluxplot: the compare option needs exactly two experiment names; got %d", len(compare))
	}
	return compare, nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "fluxplot [base directory]",
	Short: "Plot the flux fields exchanged through a climate model coupler.",
	Long: `FluxPlot renders the NetCDF flux fields exchanged through a climate model
coupler as static maps, on their native grids and regridded to a regular
latitude-longitude grid, and assembles the images into an HTML report.

The positional argument names the base directory holding the experiment
subdirectories; it defaults to the current directory. Without the --folder or
--compare options the subdirectories are discovered automatically, and if
there are two or more the first two are compared.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FLUXPLOT_var' where 'var'
is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	Args:              cobra.MaximumNArgs(1),
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := "."
		if len(args) > 0 {
			baseDir = os.ExpandEnv(args[0])
		}
		compare, err := cast.ToStringSliceE(Cfg.Get("compare"))
		if err != nil {
			return fmt.Errorf("fluxplot: parsing the compare option: %v", err)
		}
		folders, err := checkFolders(Cfg.GetString("folder"), compare)
		if err != nil {
			return err
		}
		cfg := &fluxplot.Config{
			BaseDir:    baseDir,
			Folders:    folders,
			Sequential: Cfg.GetBool("sequential"),
			NoRemap:    Cfg.GetBool("no-remap"),
			Resolution: Cfg.GetFloat64("resolution"),
			MaxFiles:   Cfg.GetInt("max-files"),
			Timestep:   Cfg.GetInt("timestep"),
			Verbose:    Cfg.GetBool("verbose"),
		}
		if !cfg.NoRemap && cfg.Resolution <= 0 {
			return fmt.Errorf("fluxplot: the regrid resolution must be positive; got %g", cfg.Resolution)
		}
		initLog(cfg.Verbose)
		return fluxplot.Run(cfg, logrus.StandardLogger())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of FluxPlot.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FluxPlot v%s\n", fluxplot.Version)
	},
	DisableAutoGenTag: true,
}
