package kubectl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quickstack/kubecfn/pkg/log"
	"github.com/quickstack/kubecfn/pkg/manifest"
)

var (
	// ErrCommandExecution is returned when the tool exits non-zero. The tool
	// output is captured verbatim in the error message.
	ErrCommandExecution = errors.New("command execution")

	// ErrOutputParse is returned when structured tool output cannot be
	// decoded into an object.
	ErrOutputParse = errors.New("parse tool output")
)

// Config holds the explicit execution environment for the tool.
type Config struct {
	// Binary is the tool executable, "kubectl" when empty.
	Binary string
	// BinDir is prepended to the subprocess PATH, for bundled binaries
	// shipped alongside the handler.
	BinDir string
	// KubeconfigPath is exported as KUBECONFIG to the subprocess.
	KubeconfigPath string
}

func (c Config) binary() string {
	if c.Binary == "" {
		return "kubectl"
	}

	return c.Binary
}

// Tool runs create/apply/delete invocations of the cluster CLI.
type Tool struct {
	tracer trace.Tracer
	cfg    Config
}

func NewTool(cfg Config) *Tool {
	return &Tool{
		tracer: otel.Tracer("kubectl"),
		cfg:    cfg,
	}
}

// Create submits the staged manifest as a new object and returns the created
// object parsed from the tool's structured output.
func (t *Tool) Create(ctx context.Context, manifestPath string) (manifest.Object, error) {
	out, err := t.run(ctx, "create", "--save-config", "-o", "json", "-f", manifestPath)
	if err != nil {
		return nil, err
	}

	return parseOutput(out)
}

// Apply upserts the staged manifest and returns the resulting object parsed
// from the tool's structured output.
func (t *Tool) Apply(ctx context.Context, manifestPath string) (manifest.Object, error) {
	out, err := t.run(ctx, "apply", "-o", "json", "-f", manifestPath)
	if err != nil {
		return nil, err
	}

	return parseOutput(out)
}

// Delete removes the object described by the staged manifest.
func (t *Tool) Delete(ctx context.Context, manifestPath string) error {
	_, err := t.run(ctx, "delete", "-f", manifestPath)

	return err
}

func (t *Tool) run(ctx context.Context, args ...string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("command", t.cfg.binary()),
		attribute.String("verb", args[0]),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(
		slog.String("command", t.cfg.binary()+" "+strings.Join(args, " ")),
	)

	start := time.Now()

	//nolint:gosec // G204: the binary and arguments come from handler configuration.
	cmd := exec.CommandContext(ctx, t.cfg.binary(), args...)
	cmd.Env = t.environ()

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.DebugContext(ctx, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)

		// Surface the tool output verbatim; it becomes the failure reason
		// reported to the orchestrator.
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		if output == "" {
			return "", fmt.Errorf("%w: %w", ErrCommandExecution, err)
		}

		return "", fmt.Errorf("%w: %w: %s", ErrCommandExecution, err, output)
	}

	logger.DebugContext(ctx, "command executed successfully",
		slog.Duration("duration", time.Since(start)),
	)

	return stdout.String(), nil
}

// environ builds the subprocess environment from configuration. Only PATH
// and HOME are inherited from the caller.
func (t *Tool) environ() []string {
	path := os.Getenv("PATH")
	if t.cfg.BinDir != "" {
		path = t.cfg.BinDir + string(os.PathListSeparator) + path
	}

	env := []string{"PATH=" + path}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	}
	if t.cfg.KubeconfigPath != "" {
		env = append(env, "KUBECONFIG="+t.cfg.KubeconfigPath)
	}

	return env
}

func parseOutput(out string) (manifest.Object, error) {
	obj, err := manifest.ParseObject([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputParse, err)
	}

	return obj, nil
}
