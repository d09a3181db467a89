package cmdutil

import (
	"context"
	"strings"
	"time"

	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/retry"
	"github.com/genomehc/hcverify/verify/verifybase"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var retrySettings = retry.Settings{
	InitialBackoff: 250 * time.Millisecond,
	Multiplier:     2,
	MaxBackoff:     5 * time.Second,
	MaxRetries:     5,
}

func RegisterRetryFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().IntVar(
		&retrySettings.MaxRetries,
		"connect-max-attempts",
		retrySettings.MaxRetries,
		"maximum number of attempts to connect to each source (0 retries forever)",
	)
	cmd.PersistentFlags().DurationVar(
		&retrySettings.InitialBackoff,
		"connect-initial-backoff",
		retrySettings.InitialBackoff,
		"amount of time to back off for after the first failed connection attempt",
	)
	cmd.PersistentFlags().DurationVar(
		&retrySettings.MaxBackoff,
		"connect-max-backoff",
		retrySettings.MaxBackoff,
		"maximum amount of time to back off for between connection attempts",
	)
}

// ParseSourceArg splits an argument of the form id===connstr. The id is
// empty if the argument has no id.
func ParseSourceArg(arg string) (dbconn.ID, string) {
	if id, connStr, ok := strings.Cut(arg, "==="); ok {
		return dbconn.ID(id), connStr
	}
	return "", arg
}

// Connect connects to connStr, retrying with the registered retry flags.
func Connect(
	ctx context.Context, logger zerolog.Logger, id dbconn.ID, connStr string,
) (dbconn.Conn, error) {
	var conn dbconn.Conn
	attempt := 0
	if err := retry.Do(ctx, retrySettings, func() error {
		attempt++
		var err error
		conn, err = dbconn.Connect(ctx, id, connStr)
		if err != nil {
			logger.Warn().Err(err).
				Str("source", string(id)).
				Int("attempt", attempt).
				Msgf("error connecting")
		}
		return err
	}); err != nil {
		return nil, verifybase.ConnectionError(err, "error connecting to %s", id)
	}
	return conn, nil
}

// ConnectAll connects to every source in order. Already opened connections
// are closed if any fails.
func ConnectAll(
	ctx context.Context, logger zerolog.Logger, ids []dbconn.ID, connStrs []string,
) ([]dbconn.Conn, error) {
	conns := make([]dbconn.Conn, 0, len(connStrs))
	for i, connStr := range connStrs {
		conn, err := Connect(ctx, logger, ids[i], connStr)
		if err != nil {
			CloseAll(ctx, conns)
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

func CloseAll(ctx context.Context, conns []dbconn.Conn) {
	for _, conn := range conns {
		_ = conn.Close(ctx)
	}
}
