package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/schema"
	"github.com/noah-isme/invigilation-api/internal/validation"
)

// errInvalidFiles makes the process exit non-zero once every verdict has been printed.
var errInvalidFiles = errors.New("one or more files are invalid")

type rootOptions struct {
	schemaFile string
	tolerance  int
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "invigilctl",
		Short:         "Offline tooling for invigilation spreadsheets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.schemaFile, "schema", "", "schema catalog YAML overriding the built-in catalog")
	cmd.PersistentFlags().IntVar(&opts.tolerance, "time-tolerance", validation.DefaultTimeTolerance, "unparseable time values tolerated per column")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newValidateCmd(opts),
		newContextsCmd(opts),
		newExportCmd(opts),
		newTokenCmd(),
	)
	return cmd
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (o *rootOptions) engine(logger *zap.Logger) (*validation.Engine, error) {
	var (
		catalog *schema.Catalog
		err     error
	)
	if o.schemaFile != "" {
		catalog, err = schema.Load(o.schemaFile)
	} else {
		catalog, err = schema.Default()
	}
	if err != nil {
		return nil, err
	}
	return validation.NewEngine(catalog, validation.WithTimeTolerance(o.tolerance), validation.WithLogger(logger)), nil
}
