package tables

import (
	"github.com/genomehc/hcverify/cmd/internal/cmdutil"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/verify"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var (
		target         string
		reference      string
		targetTable    string
		referenceTable string
		strategy       string
		rowBatchSize   int
		maxViolations  int
		rowsPerSecond  int
	)
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Check every row of a table exists in a reference table.",
		Long: `Tables checks the target table is schema compatible with the reference table and
then compares their contents, either row by row or with a checksum of each table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)
			s, err := verify.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			reporter := cmdutil.Reporter(logger)
			defer reporter.Close()

			targetID, targetConnStr := cmdutil.ParseSourceArg(target)
			if targetID == "" {
				targetID = "target"
			}
			referenceID, referenceConnStr := cmdutil.ParseSourceArg(reference)
			if referenceID == "" {
				referenceID = "reference"
			}
			conns, err := cmdutil.ConnectAll(
				ctx, logger, []dbconn.ID{targetID, referenceID}, []string{targetConnStr, referenceConnStr},
			)
			if err != nil {
				return err
			}
			defer cmdutil.CloseAll(ctx, conns)

			req := verify.ComparisonRequest{
				Target:         conns[0],
				Reference:      conns[1],
				TargetTable:    dbtable.ParseName(targetTable),
				ReferenceTable: dbtable.ParseName(targetTable),
				Strategy:       s,
				BatchSize:      rowBatchSize,
				MaxViolations:  maxViolations,
			}
			if referenceTable != "" {
				req.ReferenceTable = dbtable.ParseName(referenceTable)
			}
			res, err := verify.CompareTables(ctx, req, reporter, logger, verify.WithRowsPerSecond(rowsPerSecond))
			return cmdutil.PrintResults(cmd.OutOrStdout(), []verify.CheckResult{
				{Name: req.TargetTable.String(), Result: res, Err: err},
			})
		},
	}

	cmd.PersistentFlags().StringVar(
		&target,
		"target",
		"",
		"URL of the database whose rows are checked, optionally prefixed with id===",
	)
	cmd.PersistentFlags().StringVar(
		&reference,
		"reference",
		"",
		"URL of the database the rows are looked up in, optionally prefixed with id===",
	)
	cmd.PersistentFlags().StringVar(
		&targetTable,
		"table",
		"",
		"[schema.]table to check",
	)
	cmd.PersistentFlags().StringVar(
		&referenceTable,
		"reference-table",
		"",
		"[schema.]table to look rows up in (defaults to --table)",
	)
	cmd.PersistentFlags().StringVar(
		&strategy,
		"strategy",
		verify.StrategyRowByRow.String(),
		"comparison strategy, rowbyrow or checksum",
	)
	cmd.PersistentFlags().IntVar(
		&rowBatchSize,
		"row-batch-size",
		verify.DefaultRowBatchSize,
		"number of rows to get from the target table at a time",
	)
	cmd.PersistentFlags().IntVar(
		&maxViolations,
		"max-violations",
		verify.DefaultMaxViolations,
		"number of violations after which the comparison stops",
	)
	cmd.PersistentFlags().IntVar(
		&rowsPerSecond,
		"rows-per-second",
		0,
		"if set, maximum number of rows to read per second from the target",
	)
	for _, required := range []string{"target", "reference", "table"} {
		if err := cmd.MarkPersistentFlagRequired(required); err != nil {
			panic(err)
		}
	}
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	cmdutil.RegisterRetryFlags(cmd)
	return cmd
}
