package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/invigilation-api/internal/aggregation"
	"github.com/noah-isme/invigilation-api/internal/dto"
)

func newContextsCmd(root *rootOptions) *cobra.Command {
	data := &datasetOptions{}
	var by string
	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "Aggregate an assignment index into document contexts and print them as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if by != "teacher" && by != "session" {
				return fmt.Errorf("--by must be teacher or session, got %q", by)
			}
			if by == "session" && data.slots == "" {
				return fmt.Errorf("--slots is required with --by session")
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

			agg := aggregation.NewEngine(data.duration, logger)
			out := dto.ContextsResponse{}
			if by == "teacher" {
				contexts, failures := agg.BuildTeacherContexts(ds.index, ds.teachers, ds.session)
				out.Contexts, out.Failures = contexts, append(ds.failures, failures...)
			} else {
				contexts, failures := agg.BuildSessionContexts(ds.index, ds.teachers, ds.slots, ds.session)
				out.Contexts, out.Failures = contexts, append(ds.failures, failures...)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	data.bind(cmd)
	cmd.Flags().StringVar(&by, "by", "teacher", "group contexts by teacher or session")
	return cmd
}
