package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/quickstack/kubecfn/pkg/cfn"
	"github.com/quickstack/kubecfn/pkg/handler"
	"github.com/quickstack/kubecfn/pkg/kubeconfig"
	"github.com/quickstack/kubecfn/pkg/kubectl"
	"github.com/quickstack/kubecfn/pkg/tracing"
)

const invokeExamples = `  # Handle a Create event from a local file:
  kubecfn invoke --event create.json

  # Use a bundled kubectl and a scratch directory:
  kubecfn invoke --event event.json --bin-dir ./bin --work-dir ./tmp

  # Enforce the same time budget the hosted runtime would:
  kubecfn invoke --event event.json --timeout 1m`

type InvokeArgs struct {
	*RootArgs

	EventPath      string
	WorkDir        string
	BinDir         string
	KubectlBinary  string
	Timeout        time.Duration
	WatchdogMargin time.Duration
}

func NewInvokeArgs(rootArgs *RootArgs) *InvokeArgs {
	return &InvokeArgs{
		RootArgs: rootArgs,
	}
}

func (ia *InvokeArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ia.EventPath, "event", "", "Path to a JSON file holding one lifecycle event")
	cmd.Flags().StringVar(&ia.WorkDir, "work-dir", "", "Scratch directory for the kubeconfig and staged manifest")
	cmd.Flags().StringVar(&ia.BinDir, "bin-dir", "", "Directory prepended to PATH for bundled binaries")
	cmd.Flags().StringVar(&ia.KubectlBinary, "kubectl", "", "Cluster tool executable")
	cmd.Flags().DurationVar(&ia.Timeout, "timeout", 0, "Time budget for the invocation, 0 disables the watchdog")
	cmd.Flags().DurationVar(&ia.WatchdogMargin, "watchdog-margin", 0, "Safety margin subtracted from the time budget")

	err := cmd.MarkFlagRequired("event")
	if err != nil {
		panic(fmt.Errorf("mark event flag: %w", err))
	}

	err = cmd.MarkFlagFilename("event", "json")
	if err != nil {
		panic(fmt.Errorf("mark event flag: %w", err))
	}
}

func NewInvokeCmd(ia *InvokeArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoke",
		Short:   "Handle one lifecycle event read from a local file",
		Example: invokeExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return invoke(cmd.Context(), ia)
		},
	}
	ia.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func invoke(ctx context.Context, ia *InvokeArgs) error {
	event, err := readEvent(ia.EventPath)
	if err != nil {
		return err
	}

	if ia.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, ia.Timeout)
		defer cancel()
	}

	shutdown, err := tracing.Setup(ctx, cmdName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdown(context.Background()) //nolint:errcheck // Flush is best-effort on exit.

	h, err := newHandler(ctx, handler.Config{
		WorkDir:        ia.WorkDir,
		BinDir:         ia.BinDir,
		KubectlBinary:  ia.KubectlBinary,
		WatchdogMargin: ia.WatchdogMargin,
	})
	if err != nil {
		return err
	}

	return h.Handle(ctx, event, cfn.NewPublisher(event, ""))
}

func readEvent(path string) (cfn.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfn.Event{}, fmt.Errorf("read event: %w", err)
	}

	var event cfn.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return cfn.Event{}, fmt.Errorf("decode event %q: %w", path, err)
	}

	return event, nil
}

// newHandler assembles the handler with real service clients and the
// external tool pointed at the scratch directory's kubeconfig.
func newHandler(ctx context.Context, cfg handler.Config) (*handler.Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	tool := kubectl.NewTool(kubectl.Config{
		Binary:         cfg.KubectlBinary,
		BinDir:         cfg.BinDir,
		KubeconfigPath: cfg.KubeconfigPath(),
	})

	return handler.New(cfg, tool, kubeconfig.NewFetcher(awsCfg)), nil
}
