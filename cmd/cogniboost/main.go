// Command cogniboost trains the diagnosis pipeline on a clinical CSV,
// prints the evaluation report and the SHAP versus LIME agreement, and
// renders the rank-comparison chart.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/cogniboost/chart"
	"github.com/YuminosukeSato/cogniboost/dataset"
	"github.com/YuminosukeSato/cogniboost/pipeline"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"github.com/YuminosukeSato/cogniboost/pkg/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cogniboost:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	dataPath := flag.String("data", "", "override the CSV path from the config")
	outPath := flag.String("out", "", "override the chart output path")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	savePath := flag.String("save-model", "", "write the fitted artifacts to this gob file")
	flag.Parse()

	// .env files are optional.
	_ = godotenv.Load()

	cfg, err := pipeline.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	if *outPath != "" {
		cfg.Chart.Path = *outPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	provider := log.NewZerologProvider(log.ToLogLevel(cfg.LogLevel))
	log.SetProvider(provider)
	errors.SetZerologWarnFunc(provider.WarnFunc())

	ds, cleaning, err := dataset.LoadCSV(cfg.Data.Path,
		dataset.WithTarget(cfg.Data.Target),
		dataset.WithDropColumns(cfg.Data.DropColumns...))
	if err != nil {
		return err
	}
	neg, pos := ds.ClassCounts()
	fmt.Printf("loaded %s: %d rows, %d features (%d negative / %d positive)\n",
		cfg.Data.Path, ds.NumSamples(), ds.NumFeatures(), neg, pos)
	if cleaning.RowsFiltered > 0 {
		fmt.Printf("cleaning dropped %d rows outside the age range\n", cleaning.RowsFiltered)
	}

	diag := pipeline.NewDiagnosis(cfg)
	rep, err := diag.Fit(ds)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(rep)

	agreement, err := diag.Explain(diag.TestSet())
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(agreement.Summary())
	for i, name := range agreement.Features {
		fmt.Printf("  %-24s shap rank %2.0f   lime rank %2.0f\n",
			name, agreement.ShapRanks[i], agreement.LimeRanks[i])
	}

	if cfg.Chart.Path != "" && !agreement.Insufficient {
		if err := chart.RankComparison(agreement, cfg.Chart.Path); err != nil {
			return err
		}
		fmt.Printf("\nwrote rank comparison chart to %s\n", cfg.Chart.Path)
	}

	if *savePath != "" {
		if err := diag.Save(*savePath); err != nil {
			return err
		}
		fmt.Printf("saved fitted pipeline to %s\n", *savePath)
	}
	return nil
}
