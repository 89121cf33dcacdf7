package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/quickstack/kubecfn/internal/cli"
	"github.com/quickstack/kubecfn/pkg/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Under the hosted runtime there is no argv contract; serve events
	// directly instead of parsing a command line.
	if cli.IsLambda() {
		if err := cli.StartLambda(ctx); err != nil {
			slog.Error("start runtime", slog.Any("error", err))
			os.Exit(1)
		}

		return
	}

	err := fang.Execute(ctx, cli.NewRootCmd(),
		fang.WithVersion(version.GetVersion()),
		fang.WithErrorHandler(cli.ErrorHandler),
	)
	if err != nil {
		os.Exit(1)
	}
}
