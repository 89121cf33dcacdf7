package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/quickstack/kubecfn/pkg/handler"
	"github.com/quickstack/kubecfn/pkg/log"
	"github.com/quickstack/kubecfn/pkg/tracing"
)

// IsLambda reports whether the process was started by the hosted runtime,
// which always exports the runtime API endpoint.
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

// StartLambda wires the handler into the hosted runtime and blocks serving
// events. Configuration comes from the same environment variables the CLI
// flags bind to; logs default to JSON so the log service can index them.
func StartLambda(ctx context.Context) error {
	level := envOr("log-level", string(log.LevelInfo))
	format := envOr("log-format", string(log.FormatJSON))

	logHandler, err := log.CreateHandlerWithStrings(os.Stderr, level, format)
	if err != nil {
		return fmt.Errorf("create log handler: %w", err)
	}
	slog.SetDefault(slog.New(logHandler))

	shutdown, err := tracing.Setup(ctx, cmdName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdown(context.Background()) //nolint:errcheck // Flush is best-effort on exit.

	margin, err := envDuration("watchdog-margin")
	if err != nil {
		return err
	}

	h, err := newHandler(ctx, handler.Config{
		WorkDir:        envOr("work-dir", ""),
		BinDir:         envOr("bin-dir", ""),
		KubectlBinary:  envOr("kubectl", ""),
		WatchdogMargin: margin,
	})
	if err != nil {
		return err
	}

	lambda.StartWithOptions(h.Lambda(), lambda.WithContext(ctx))

	return nil
}

func envOr(flagName, fallback string) string {
	if v, ok := os.LookupEnv(flagToEnvName(flagName)); ok {
		return v
	}

	return fallback
}

func envDuration(flagName string) (time.Duration, error) {
	v, ok := os.LookupEnv(flagToEnvName(flagName))
	if !ok {
		return 0, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse $%s: %w", flagToEnvName(flagName), err)
	}

	return d, nil
}
