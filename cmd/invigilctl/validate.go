package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/invigilation-api/internal/models"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		kind   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "validate --kind KIND FILE...",
		Short: "Validate spreadsheets against a file kind",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := root.engine(root.logger())
			if err != nil {
				return err
			}
			invalid := false
			verdicts := make(map[string]models.ValidationVerdict, len(args))
			for _, path := range args {
				verdict := engine.ValidateFile(path, kind)
				verdicts[path] = verdict
				if !verdict.Valid {
					invalid = true
				}
				if !asJSON {
					printVerdict(cmd.OutOrStdout(), path, verdict)
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(verdicts); err != nil {
					return err
				}
			}
			if invalid {
				return errInvalidFiles
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "file kind (teachers, preferences, slots or an alias)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print verdicts as JSON")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func printVerdict(w io.Writer, path string, v models.ValidationVerdict) {
	status := "VALID"
	if !v.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(w, "%s: %s (%s, %d rows)\n", path, status, v.Kind, v.FileInfo.RowCount)
	if v.Failure != nil {
		fmt.Fprintf(w, "  failure %s: %s\n", v.Failure.Code, v.Failure.Message)
	}
	for _, e := range v.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	for _, warn := range v.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}
