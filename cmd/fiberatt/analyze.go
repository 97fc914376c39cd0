package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fiberatt/internal/app"
	"fiberatt/internal/report"
	"fiberatt/internal/source"

	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	out       string
	png       bool
	noPlot    bool
	noStore   bool
	format    string
	delimiter string
	header    string
}

// analyzeCmd 替代交互式的文件选择：直接以参数指定 CSV 文件。
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Fit a CSV of (length, power) samples and draw the curves",
	Long:  `The 'analyze' command loads the first two columns of a CSV file as fiber length and power, fits the exponential attenuation model, prints the report and writes linear and dB charts.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.out, "out", "o", "", "chart output directory (overrides plot.output_dir)")
	f.BoolVar(&analyzeFlags.png, "png", false, "also rasterise charts to PNG with headless Chrome")
	f.BoolVar(&analyzeFlags.noPlot, "no-plot", false, "skip chart generation")
	f.BoolVar(&analyzeFlags.noStore, "no-store", false, "do not record the run in history")
	f.StringVarP(&analyzeFlags.format, "format", "f", "text", "report format: text, json or yaml")
	f.StringVar(&analyzeFlags.delimiter, "delimiter", "", "CSV delimiter (overrides loader.delimiter)")
	f.StringVar(&analyzeFlags.header, "header", "", "header policy: auto, none or skip (overrides loader.header)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(analyzeFlags.format)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if analyzeFlags.out != "" {
		cfg.Plot.OutputDir = analyzeFlags.out
	}
	if cmd.Flags().Changed("png") {
		cfg.Plot.PNG = analyzeFlags.png
	}
	if analyzeFlags.noPlot {
		cfg.Plot.Enabled = false
	}
	if analyzeFlags.noStore {
		cfg.Store.Enabled = false
	}
	if analyzeFlags.delimiter != "" {
		cfg.Loader.Delimiter = analyzeFlags.delimiter
	}
	if analyzeFlags.header != "" {
		cfg.Loader.Header = analyzeFlags.header
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := source.NewCSVFile(args[0], source.CSVOptionsFromConfig(cfg.Loader))
	res, err := a.Analyze(ctx, src)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), res.Summary(), format)
}
