package main

import (
	"fmt"

	json "github.com/KevinWang15/go-json5"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/hankel"
	"github.com/bob-anderson-ok/HankelXUV/prefactor"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
)

// timeDomainSource selects a real (z, r, t) field that is transformed to
// frequency on load.
const timeDomainSource = "time_domain"

// RunParameters is the validated content of a run file.
type RunParameters struct {
	ShowInput bool
	Title     string

	InputFile  string
	DataSource string
	FieldPath  string
	ZgridPath  string
	RgridPath  string
	OgridPath  string
	TgridPath  string

	KoMin, KoMax, KoStep int
	KrMax, KrStep        int
	KzStep               int

	DistanceFF float64
	RmaxFF     float64
	NrFF       int

	TablesDir         string
	Gas               string
	AbsorptionTables  string
	DispersionTables  string
	IncludeAbsorption bool
	IncludeDispersion bool
	EffectiveIRIndex  float64
	Pressure          prefactor.Pressure
	PressureTableFile string

	HankelIntegrator       string
	LongitudinalIntegrator string
	NearFieldFactor        bool
	StoreCumulative        bool
	StoreNonNormCumulative bool
	StoreEntryExit         bool
	StoreOnAxisBuildUp     bool
	Workers                int

	OutputFile       string
	SpectrumPlot     string
	LineoutPlot      string
	LineoutOmega     float64
	IntensityPNG     string
	IntensityViewPNG string
	PressurePlot     string
}

// RgridFF is the far-field radial grid.
func (p *RunParameters) RgridFF() []float64 {
	return grid.Linspace(0, p.RmaxFF, p.NrFF)
}

// HankelConfig translates the run file into an integrator configuration.
func (p *RunParameters) HankelConfig(lookup refindex.Lookup) (hankel.Config, error) {
	q, ok := hankel.ParseQuadrature(p.HankelIntegrator)
	if !ok {
		return hankel.Config{}, fmt.Errorf("hankel_integrator: unknown rule %q", p.HankelIntegrator)
	}
	return hankel.Config{
		Distance:                     p.DistanceFF,
		RgridFF:                      p.RgridFF(),
		Gas:                          p.Gas,
		AbsorptionTable:              p.AbsorptionTables,
		DispersionTable:              p.DispersionTables,
		IncludeAbsorption:            p.IncludeAbsorption,
		IncludeDispersion:            p.IncludeDispersion,
		EffectiveIRIndex:             p.EffectiveIRIndex,
		Pressure:                     p.Pressure,
		Lookup:                       lookup,
		Quadrature:                   q,
		Longitudinal:                 p.LongitudinalIntegrator,
		NearField:                    p.NearFieldFactor,
		StoreCumulative:              p.StoreCumulative,
		StoreNonNormalisedCumulative: p.StoreNonNormCumulative,
		StoreEntryExit:               p.StoreEntryExit,
		Workers:                      p.Workers,
	}, nil
}

func parseArrayFormat(data []byte) ([][2]float64, error) {
	var pairs [][2]float64
	err := json.Unmarshal(data, &pairs)
	return pairs, err
}

func getLeafValue(jsonTable map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = jsonTable
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func leafName(path []string) string {
	name := path[0]
	for _, p := range path[1:] {
		name += "." + p
	}
	return name
}

// The helpers below fill dst from the leaf at path. A missing optional leaf
// leaves dst at the default it already holds.

func stringLeaf(jsonTable map[string]interface{}, dst *string, required bool, path ...string) (string, bool) {
	v, ok := getLeafValue(jsonTable, path...)
	if !ok {
		if required {
			return leafName(path) + ": not found", false
		}
		return "", true
	}
	s, ok := v.(string)
	if !ok {
		return leafName(path) + ": is not a string", false
	}
	*dst = s
	return "", true
}

func floatLeaf(jsonTable map[string]interface{}, dst *float64, required bool, path ...string) (string, bool) {
	v, ok := getLeafValue(jsonTable, path...)
	if !ok {
		if required {
			return leafName(path) + ": not found", false
		}
		return "", true
	}
	f, ok := v.(float64)
	if !ok {
		return leafName(path) + ": is not a float64", false
	}
	*dst = f
	return "", true
}

func intLeaf(jsonTable map[string]interface{}, dst *int, required bool, path ...string) (string, bool) {
	f := float64(*dst)
	if msg, ok := floatLeaf(jsonTable, &f, required, path...); !ok {
		return msg, false
	}
	if f != float64(int(f)) {
		return leafName(path) + ": is not an integer", false
	}
	*dst = int(f)
	return "", true
}

func boolLeaf(jsonTable map[string]interface{}, dst *bool, path ...string) (string, bool) {
	v, ok := getLeafValue(jsonTable, path...)
	if !ok {
		return "", true
	}
	b, ok := v.(bool)
	if !ok {
		return leafName(path) + ": is not a bool", false
	}
	*dst = b
	return "", true
}

func floatSlice(v interface{}) ([]float64, bool) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]float64, len(list))
	for i, item := range list {
		if out[i], ok = item.(float64); !ok {
			return nil, false
		}
	}
	return out, true
}

// maxIndex reads a slice bound that may be the string "end".
func maxIndex(jsonTable map[string]interface{}, dst *int, path ...string) (string, bool) {
	v, ok := getLeafValue(jsonTable, path...)
	if !ok {
		return "", true
	}
	if s, ok := v.(string); ok {
		if s != "end" {
			return leafName(path) + `: only "end" is allowed as a string`, false
		}
		*dst = grid.End
		return "", true
	}
	return intLeaf(jsonTable, dst, true, path...)
}

// parsePressure accepts a number or an object with zgrid and/or rgrid tables.
// For a zr mesh value is a list of rows, one per zgrid entry.
func parsePressure(v interface{}) (prefactor.Pressure, string, bool) {
	if f, ok := v.(float64); ok {
		return prefactor.Scalar(f), "", true
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, "pressure: is neither a float64 nor an object", false
	}
	var z, r []float64
	if raw, ok := m["zgrid"]; ok {
		if z, ok = floatSlice(raw); !ok {
			return nil, "pressure.zgrid: is not a list of float64", false
		}
	}
	if raw, ok := m["rgrid"]; ok {
		if r, ok = floatSlice(raw); !ok {
			return nil, "pressure.rgrid: is not a list of float64", false
		}
	}
	raw, ok := m["value"]
	if !ok {
		return nil, "pressure.value: not found", false
	}
	var values []float64
	if z != nil && r != nil {
		rows, ok := raw.([]interface{})
		if !ok {
			return nil, "pressure.value: is not a list of rows", false
		}
		for i, row := range rows {
			vals, ok := floatSlice(row)
			if !ok {
				return nil, fmt.Sprintf("pressure.value[%d]: is not a list of float64", i), false
			}
			values = append(values, vals...)
		}
	} else if values, ok = floatSlice(raw); !ok {
		return nil, "pressure.value: is not a list of float64", false
	}
	p, err := prefactor.Tables(z, r, values)
	if err != nil {
		return nil, "pressure: " + err.Error(), false
	}
	return p, "", true
}

func validateJsonFileAndFillParameters(jsonTable map[string]interface{}, params *RunParameters) (string, bool) {
	msg := "No problem found in json file" // Initialize msg to presumed success.

	// Defaults
	params.DataSource = "dynamic"
	params.FieldPath = "XUV/FSourceTerm"
	params.ZgridPath = "XUV/zgrid"
	params.RgridPath = "XUV/rgrid"
	params.OgridPath = "XUV/ogrid"
	params.TgridPath = "XUV/tgrid"
	params.KoMax, params.KrMax = grid.End, grid.End
	params.KoStep, params.KrStep, params.KzStep = 1, 1, 1
	params.NrFF = 100
	params.Gas = refindex.Vacuum
	params.AbsorptionTables = refindex.Henke
	params.DispersionTables = refindex.Henke
	params.IncludeAbsorption = true
	params.IncludeDispersion = true
	params.EffectiveIRIndex = 1
	params.Pressure = prefactor.Scalar(1)
	params.HankelIntegrator = "trapezoidal"
	params.LongitudinalIntegrator = hankel.LongitudinalTrapezoidal
	params.NearFieldFactor = true
	params.StoreEntryExit = true
	params.OutputFile = "Hankel.h5"

	checks := []func() (string, bool){
		func() (string, bool) { return boolLeaf(jsonTable, &params.ShowInput, "show_input_bool") },
		func() (string, bool) { return stringLeaf(jsonTable, &params.Title, false, "title") },

		func() (string, bool) { return stringLeaf(jsonTable, &params.InputFile, true, "input", "file") },
		func() (string, bool) { return stringLeaf(jsonTable, &params.DataSource, false, "input", "data_source") },
		func() (string, bool) { return stringLeaf(jsonTable, &params.FieldPath, false, "input", "field_path") },
		func() (string, bool) { return stringLeaf(jsonTable, &params.ZgridPath, false, "input", "zgrid_path") },
		func() (string, bool) { return stringLeaf(jsonTable, &params.RgridPath, false, "input", "rgrid_path") },
		func() (string, bool) { return stringLeaf(jsonTable, &params.OgridPath, false, "input", "ogrid_path") },
		func() (string, bool) { return stringLeaf(jsonTable, &params.TgridPath, false, "input", "tgrid_path") },

		func() (string, bool) { return intLeaf(jsonTable, &params.KoMin, false, "ko_min") },
		func() (string, bool) { return maxIndex(jsonTable, &params.KoMax, "ko_max") },
		func() (string, bool) { return intLeaf(jsonTable, &params.KoStep, false, "ko_step") },
		func() (string, bool) { return maxIndex(jsonTable, &params.KrMax, "kr_max") },
		func() (string, bool) { return intLeaf(jsonTable, &params.KrStep, false, "kr_step") },
		func() (string, bool) { return intLeaf(jsonTable, &params.KzStep, false, "kz_step") },

		func() (string, bool) {
			return floatLeaf(jsonTable, &params.DistanceFF, true, "far_field", "distance_m")
		},
		func() (string, bool) { return floatLeaf(jsonTable, &params.RmaxFF, true, "far_field", "rmax_m") },
		func() (string, bool) { return intLeaf(jsonTable, &params.NrFF, false, "far_field", "num_points") },

		func() (string, bool) { return stringLeaf(jsonTable, &params.TablesDir, false, "medium", "tables_dir") },
		func() (string, bool) { return stringLeaf(jsonTable, &params.Gas, false, "medium", "gas") },
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.AbsorptionTables, false, "medium", "absorption_tables")
		},
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.DispersionTables, false, "medium", "dispersion_tables")
		},
		func() (string, bool) {
			return boolLeaf(jsonTable, &params.IncludeAbsorption, "medium", "include_absorption")
		},
		func() (string, bool) {
			return boolLeaf(jsonTable, &params.IncludeDispersion, "medium", "include_dispersion")
		},
		func() (string, bool) {
			return floatLeaf(jsonTable, &params.EffectiveIRIndex, false, "medium", "effective_IR_refractive_index")
		},
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.PressureTableFile, false, "medium", "pressure_table_file")
		},

		func() (string, bool) {
			return stringLeaf(jsonTable, &params.HankelIntegrator, false, "hankel_integrator")
		},
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.LongitudinalIntegrator, false, "longitudinal_integrator")
		},
		func() (string, bool) { return boolLeaf(jsonTable, &params.NearFieldFactor, "near_field_factor") },
		func() (string, bool) { return boolLeaf(jsonTable, &params.StoreCumulative, "store_cumulative_result") },
		func() (string, bool) {
			return boolLeaf(jsonTable, &params.StoreNonNormCumulative, "store_non_normalised_cumulative_result")
		},
		func() (string, bool) {
			return boolLeaf(jsonTable, &params.StoreEntryExit, "store_entry_and_exit_plane_transform")
		},
		func() (string, bool) {
			return boolLeaf(jsonTable, &params.StoreOnAxisBuildUp, "store_on_axis_signal_buildup")
		},
		func() (string, bool) { return intLeaf(jsonTable, &params.Workers, false, "workers") },

		func() (string, bool) { return stringLeaf(jsonTable, &params.OutputFile, false, "output", "file") },
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.SpectrumPlot, false, "output", "spectrum_plot")
		},
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.LineoutPlot, false, "output", "lineout_plot")
		},
		func() (string, bool) {
			return floatLeaf(jsonTable, &params.LineoutOmega, false, "output", "lineout_omega")
		},
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.IntensityPNG, false, "output", "intensity_png")
		},
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.IntensityViewPNG, false, "output", "intensity_view_png")
		},
		func() (string, bool) {
			return stringLeaf(jsonTable, &params.PressurePlot, false, "output", "pressure_plot")
		},
	}
	for _, check := range checks {
		if m, ok := check(); !ok {
			return m, false
		}
	}

	// The inverse group velocity, when given, sets the co-moving frame.
	invGV, ok := getLeafValue(jsonTable, "medium", "inverse_group_velocity_s_per_m")
	if ok {
		value, ok := invGV.(float64)
		if !ok {
			msg = "medium.inverse_group_velocity_s_per_m: is not a float64"
			return msg, false
		}
		params.EffectiveIRIndex = prefactor.EffectiveIndexFromInverseGroupVelocity(value)
	}

	pressure, ok := getLeafValue(jsonTable, "medium", "pressure")
	if ok {
		if params.PressureTableFile != "" {
			msg = "medium.pressure and medium.pressure_table_file are mutually exclusive"
			return msg, false
		}
		params.Pressure, msg, ok = parsePressure(pressure)
		if !ok {
			msg = "medium." + msg
			return msg, false
		}
	}

	switch params.DataSource {
	case "static", "dynamic", timeDomainSource:
	default:
		msg = fmt.Sprintf("input.data_source: %q is not \"static\", \"dynamic\" or \"%s\"", params.DataSource, timeDomainSource)
		return msg, false
	}
	if !(params.DistanceFF > 0) {
		msg = "far_field.distance_m: must be positive"
		return msg, false
	}
	if !(params.RmaxFF >= 0) {
		msg = "far_field.rmax_m: must not be negative"
		return msg, false
	}
	if params.NrFF < 1 {
		msg = "far_field.num_points: must be at least 1"
		return msg, false
	}
	if params.Gas != refindex.Vacuum && params.TablesDir == "" {
		msg = "medium.tables_dir: required for gas " + params.Gas
		return msg, false
	}
	if _, ok := hankel.ParseQuadrature(params.HankelIntegrator); !ok {
		msg = fmt.Sprintf("hankel_integrator: unknown rule %q", params.HankelIntegrator)
		return msg, false
	}

	return msg, true
}
