package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/invigilation-api/internal/aggregation"
	"github.com/noah-isme/invigilation-api/pkg/export"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	data := &datasetOptions{}
	var out string
	cmd := &cobra.Command{
		Use:   "export --out planning.xlsx",
		Short: "Write the planning overview workbook (.xlsx) or its detailed sheet (.csv)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ext := strings.ToLower(filepath.Ext(out))
			if ext != ".xlsx" && ext != ".csv" {
				return fmt.Errorf("--out must end in .xlsx or .csv")
			}
			logger := root.logger()
			engine, err := root.engine(logger)
			if err != nil {
				return err
			}
			ds, err := loadDataset(cmd.Context(), data, engine, logger)
			if err != nil {
				return err
			}

			sheets := aggregation.NewEngine(data.duration, logger).PlanningSheets(ds.index, ds.teachers, ds.slots, ds.session)
			var payload []byte
			if ext == ".xlsx" {
				payload, err = export.NewXLSXExporter().Render(sheets)
			} else {
				payload, err = export.NewCSVExporter(';').Render(sheets[0])
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, payload, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d teachers, %d failures)\n", out, len(ds.index), len(ds.failures))
			return nil
		},
	}
	data.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "planning.xlsx", "output file")
	return cmd
}
