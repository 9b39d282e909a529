package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcsas3/mcsas3-go/mcanalysis"
	"github.com/mcsas3/mcsas3-go/mcmodel"
	"github.com/mcsas3/mcsas3-go/runconfig"
	"github.com/mcsas3/mcsas3-go/store"
)

var (
	analyzeResultFile string
	analyzeHistConfig string
	analyzeDataFile   string
	analyzeOut        string
	analyzeModelName  string
	analyzeFitNDoF    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Aggregate a stored result across its repetitions",
	RunE:  runAnalyze,
}

func init() {
	pf := analyzeCmd.Flags()
	pf.StringVar(&analyzeResultFile, "resultFile", "", "checkpoint file to read")
	pf.StringVar(&analyzeHistConfig, "histConfigFile", "", "histogram ranges YAML file")
	pf.StringVar(&analyzeDataFile, "dataFile", "", "the measured data the result was fit against")
	pf.StringVar(&analyzeOut, "out", "", "optional JSON output file (defaults to stdout)")
	pf.StringVar(&analyzeModelName, "model", "sphere", "kernel model name the result was fit with")
	pf.IntVar(&analyzeFitNDoF, "fitNDoF", runconfig.FitNDoF, "degrees of freedom consumed by the linear fit")

	_ = analyzeCmd.MarkFlagRequired("resultFile")
	_ = analyzeCmd.MarkFlagRequired("histConfigFile")
	_ = analyzeCmd.MarkFlagRequired("dataFile")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	meas, err := readCSVData(analyzeDataFile)
	if err != nil {
		return err
	}

	ranges, err := runconfig.LoadHistConfig(analyzeHistConfig)
	if err != nil {
		return err
	}

	s, err := store.Open(analyzeResultFile)
	if err != nil {
		return err
	}

	k, err := buildKernel(analyzeModelName, meas.Q)
	if err != nil {
		return err
	}

	fitNames, staticNames, err := mcmodel.DiscoverParameterNames(s, store.ModelPath(1, 0))
	if err != nil {
		return err
	}

	result, err := mcanalysis.Aggregate(s, 1, fitNames, staticNames, k, meas, analyzeFitNDoF, ranges)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	if analyzeOut == "" {
		cmd.Println(string(b))
		return nil
	}
	return os.WriteFile(analyzeOut, b, 0o644)
}
