package main

import (
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	json "github.com/KevinWang15/go-json5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/prefactor"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
)

const version = "0_3_0"

func main() {
	defer klog.Flush()
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "hankelxuv",
		Short:        "Far-field XUV spectra from CUPRAD/TDSE source terms",
		Version:      version,
		SilenceUsage: true,
	}

	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)
	root.PersistentFlags().AddGoFlagSet(klogFlags)

	root.AddCommand(newRunCommand(), newReplotCommand(), newGasesCommand(), newCoherenceCommand())
	return root
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <parameter-file>",
		Short: "Integrate the far field described by a json5 parameter file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := readParameterFile(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runHankel(ctx, params)
		},
	}
}

func newReplotCommand() *cobra.Command {
	var plotFile string
	cmd := &cobra.Command{
		Use:   "replot <result.h5> <intensity.png>",
		Short: "Redraw the on-axis spectrum from a saved 16-bit intensity map",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := replotSpectrum(args[0], args[1], plotFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved on-axis spectrum to %s\n", plotFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&plotFile, "out", "spectrum.png", "plot file to write")
	return cmd
}

func readParameterFile(path string) (*RunParameters, error) {
	// Read the Json5 (or Json) parameter file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attempt to read input file %q failed: %w", path, err)
	}

	// Parse json(5) data into a generic container
	var jsonTable map[string]interface{}
	err = json.Unmarshal(data, &jsonTable)
	if err != nil {
		return nil, fmt.Errorf("format error in file %q: %w", path, err)
	}

	params := &RunParameters{}
	msg, ok := validateJsonFileAndFillParameters(jsonTable, params)
	if !ok {
		return nil, fmt.Errorf("%s: %s", path, msg)
	}

	// Check for user wanting printout of complete jsonTable
	if params.ShowInput {
		fmt.Printf("%s", "\nPrintout of  complete jsonTable contents...\n")
		fmt.Println(string(data))
	}

	// A pressure table file holds [[z, value], ...] pairs
	if params.PressureTableFile != "" {
		data, err := os.ReadFile(params.PressureTableFile)
		if err != nil {
			return nil, fmt.Errorf("attempt to read file %q failed: %w", params.PressureTableFile, err)
		}
		pairs, err := parseArrayFormat(data)
		if err != nil {
			return nil, fmt.Errorf("error reading pressure table %q: %w", params.PressureTableFile, err)
		}
		if params.Pressure, err = pressureFromPairs(pairs); err != nil {
			return nil, fmt.Errorf("pressure table %q: %w", params.PressureTableFile, err)
		}
	}
	return params, nil
}

func pressureFromPairs(pairs [][2]float64) (prefactor.Pressure, error) {
	z := make([]float64, len(pairs))
	values := make([]float64, len(pairs))
	for i, pair := range pairs {
		z[i], values[i] = pair[0], pair[1]
	}
	return prefactor.Tables(z, nil, values)
}

// loadLookup reads the refractive-index tables, or serves vacuum only when
// no directory is given.
func loadLookup(dir string) (*refindex.Tables, error) {
	if dir == "" {
		return refindex.NewTables(), nil
	}
	return refindex.LoadDir(dir)
}

func newGasesCommand() *cobra.Command {
	var tablesDir string
	cmd := &cobra.Command{
		Use:   "gases",
		Short: "List the supported gas/table keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := loadLookup(tablesDir)
			if err != nil {
				return err
			}
			for _, k := range tables.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tablesDir, "tables", "", "directory of <gas>_<table>.nff files")
	return cmd
}

type coherenceOptions struct {
	tablesDir          string
	key                string
	pressure           float64
	nIR                float64
	omegaMin, omegaMax float64
	n                  int
}

func (o *coherenceOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.tablesDir, "tables", "", "directory of <gas>_<table>.nff files")
	fs.StringVar(&o.key, "key", "Ar_Henke", "gas/table key")
	fs.Float64Var(&o.pressure, "pressure", 1, "pressure in units of 1 bar at 0 °C")
	fs.Float64Var(&o.nIR, "nir", 1, "effective IR refractive index")
	fs.Float64Var(&o.omegaMin, "omega-min", 2.354564e16, "lowest angular frequency (rad/s)")
	fs.Float64Var(&o.omegaMax, "omega-max", 9.418256e16, "highest angular frequency (rad/s)")
	fs.IntVar(&o.n, "n", 11, "number of frequencies")
}

func newCoherenceCommand() *cobra.Command {
	opts := &coherenceOptions{}
	cmd := &cobra.Command{
		Use:   "coherence",
		Short: "Print coherence lengths pi/|omega*D| for a gas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCoherence(cmd, opts)
		},
	}
	opts.addFlags(cmd.Flags())
	return cmd
}

func printCoherence(cmd *cobra.Command, o *coherenceOptions) error {
	key, err := refindex.ParseKey(o.key)
	if err != nil {
		return err
	}
	tables, err := loadLookup(o.tablesDir)
	if err != nil {
		return err
	}
	omega := grid.Linspace(o.omegaMin, o.omegaMax, o.n)
	start := time.Now()
	lcoh, err := prefactor.CoherenceLength(tables, key, omega, o.pressure, o.nIR)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%14s %10s %14s\n", "omega (rad/s)", "E (eV)", "L_coh (m)")
	for i, w := range omega {
		fmt.Fprintf(out, "%14.6e %10.3f %14.6e\n", w, refindex.PhotonEnergyEV(w), lcoh[i])
	}
	klog.V(1).InfoS("Coherence lengths computed", "key", key, "elapsed", time.Since(start))
	return nil
}
