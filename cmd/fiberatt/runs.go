package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"fiberatt/internal/store/gormstore"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var runsFlags struct {
	limit  int
	asJSON bool
}

// runsCmd 列出历史分析记录。
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded analysis runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfg.Store.Path); err != nil {
			return fmt.Errorf("no run history at %s: %w", cfg.Store.Path, err)
		}
		st, err := gormstore.NewGormStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.List(context.Background(), runsFlags.limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runsFlags.asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "CREATED", "SOURCE", "N", "P0", "ALPHA", "dB/km")
		for _, r := range runs {
			t.Row(
				r.ID,
				r.CreatedAt.Local().Format(time.DateTime),
				r.Source,
				fmt.Sprint(r.Fit.N),
				fmt.Sprintf("%.6g", r.Fit.P0),
				fmt.Sprintf("%.6g", r.Fit.Alpha),
				fmt.Sprintf("%.4g", r.Fit.AttenuationDB()*1000),
			)
		}
		_, err = fmt.Fprintln(out, t.String())
		return err
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsFlags.limit, "limit", "n", 20, "number of runs to show")
	runsCmd.Flags().BoolVar(&runsFlags.asJSON, "json", false, "print runs as JSON")
	rootCmd.AddCommand(runsCmd)
}
