package keys

import (
	"github.com/genomehc/hcverify/cmd/internal/cmdutil"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/verify"
	"github.com/genomehc/hcverify/verify/keyverify"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var (
		source     string
		from       string
		to         string
		oneWayOnly bool
		sampleSize int
	)
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Find orphaned keys between two tables.",
		Long: `Keys counts the values of --from with no matching value in --to and, unless
--one-way is set, the values of --to with no matching value in --from. NULL keys are
never orphans.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)
			req := keyverify.Request{OneWayOnly: oneWayOnly}
			if req.From, err = keyverify.ParseKey(from); err != nil {
				return err
			}
			if req.To, err = keyverify.ParseKey(to); err != nil {
				return err
			}

			reporter := cmdutil.Reporter(logger)
			defer reporter.Close()

			id, connStr := cmdutil.ParseSourceArg(source)
			if id == "" {
				id = "source"
			}
			conn, err := cmdutil.Connect(ctx, logger, id, connStr)
			if err != nil {
				return err
			}
			defer cmdutil.CloseAll(ctx, []dbconn.Conn{conn})

			res, err := verify.CompareKeys(ctx, conn, req, reporter, logger, verify.WithSampleSize(sampleSize))
			return cmdutil.PrintResults(cmd.OutOrStdout(), []verify.CheckResult{
				{Name: req.From.String(), Result: res.Comparison, Orphans: res.Orphans, Err: err},
			})
		},
	}

	cmd.PersistentFlags().StringVar(
		&source,
		"source",
		"",
		"URL of the database holding both tables, optionally prefixed with id===",
	)
	cmd.PersistentFlags().StringVar(
		&from,
		"from",
		"",
		"referencing key as [schema.]table.column",
	)
	cmd.PersistentFlags().StringVar(
		&to,
		"to",
		"",
		"referenced key as [schema.]table.column",
	)
	cmd.PersistentFlags().BoolVar(
		&oneWayOnly,
		"one-way",
		false,
		"only look for orphans of --from",
	)
	cmd.PersistentFlags().IntVar(
		&sampleSize,
		"sample-size",
		keyverify.DefaultSampleSize,
		"number of orphaned values to report per direction",
	)
	for _, required := range []string{"source", "from", "to"} {
		if err := cmd.MarkPersistentFlagRequired(required); err != nil {
			panic(err)
		}
	}
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	cmdutil.RegisterRetryFlags(cmd)
	return cmd
}
