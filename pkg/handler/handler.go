package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quickstack/kubecfn/pkg/cfn"
	"github.com/quickstack/kubecfn/pkg/kubeconfig"
	"github.com/quickstack/kubecfn/pkg/log"
	"github.com/quickstack/kubecfn/pkg/manifest"
	"github.com/quickstack/kubecfn/pkg/tree"
)

var (
	// ErrMissingManifest is returned when the resource properties carry no
	// map-shaped manifest.
	ErrMissingManifest = errors.New("resource properties have no manifest")

	// ErrMissingSelfLink is returned when a created object reports no
	// selfLink, leaving nothing to use as the physical resource id.
	ErrMissingSelfLink = errors.New("created object has no selfLink")

	// ErrUnknownRequestType is returned for request kinds outside the
	// lifecycle protocol.
	ErrUnknownRequestType = errors.New("unknown request type")
)

// fallbackIDPattern matches physical ids synthesized by the invocation
// environment when no real object was ever created: a date-shaped path, a
// bracketed version literal, and a 32-hex suffix. Such an id means a prior
// Create failed before anything existed, so Delete has nothing to clean up.
var fallbackIDPattern = regexp.MustCompile(`^[0-9]{4}/[0-9]{2}/[0-9]{2}/\[\$LATEST\][a-f0-9]{32}$`)

// IsFallbackPhysicalID reports whether id was synthesized by the invocation
// environment rather than derived from a real cluster object.
func IsFallbackPhysicalID(id string) bool {
	return fallbackIDPattern.MatchString(id)
}

// Config holds the handler's filesystem and timing configuration.
type Config struct {
	// WorkDir is where the kubeconfig and staged manifest are written,
	// "/tmp" when empty.
	WorkDir string
	// BinDir is prepended to the tool's PATH, for bundled binaries.
	BinDir string
	// KubectlBinary overrides the tool executable.
	KubectlBinary string
	// WatchdogMargin is subtracted from the remaining time budget when
	// arming the watchdog, [cfn.DefaultWatchdogMargin] when zero.
	WatchdogMargin time.Duration
}

func (c Config) workDir() string {
	if c.WorkDir == "" {
		return "/tmp"
	}

	return c.WorkDir
}

// KubeconfigPath is the local path the decrypted cluster config is written to.
func (c Config) KubeconfigPath() string {
	return filepath.Join(c.workDir(), ".kube", "config")
}

// ManifestPath is the local path the normalized manifest is staged at.
func (c Config) ManifestPath() string {
	return filepath.Join(c.workDir(), "manifest.json")
}

func (c Config) margin() time.Duration {
	if c.WatchdogMargin <= 0 {
		return cfn.DefaultWatchdogMargin
	}

	return c.WatchdogMargin
}

// ClusterTool performs the actual cluster mutations against a staged
// manifest document.
type ClusterTool interface {
	Create(ctx context.Context, manifestPath string) (manifest.Object, error)
	Apply(ctx context.Context, manifestPath string) (manifest.Object, error)
	Delete(ctx context.Context, manifestPath string) error
}

// ConfigFetcher provisions the cluster configuration file.
type ConfigFetcher interface {
	Fetch(ctx context.Context, src kubeconfig.Source, destPath string) error
}

// Reporter delivers the terminal status for one invocation.
type Reporter interface {
	ArmWatchdog(d time.Duration)
	Publish(ctx context.Context, status cfn.Status, data map[string]any, physicalID, reason string) error
}

// Handler is the top-level lifecycle controller.
type Handler struct {
	tracer  trace.Tracer
	tool    ClusterTool
	fetcher ConfigFetcher
	cfg     Config
}

func New(cfg Config, tool ClusterTool, fetcher ConfigFetcher) *Handler {
	return &Handler{
		tracer:  otel.Tracer("handler"),
		tool:    tool,
		fetcher: fetcher,
		cfg:     cfg,
	}
}

// Handle runs one invocation end to end. The watchdog is armed first, so
// the orchestrator hears back even if the rest of the path overruns the
// caller's budget; afterwards exactly one terminal report goes out through
// the reporter, regardless of which exit path was taken.
func (h *Handler) Handle(ctx context.Context, event cfn.Event, reporter Reporter) error {
	ctx, span := h.tracer.Start(ctx, "handle", trace.WithAttributes(
		attribute.String("request_type", string(event.RequestType)),
		attribute.String("logical_resource_id", event.LogicalResourceID),
	))
	defer span.End()

	if deadline, ok := ctx.Deadline(); ok {
		reporter.ArmWatchdog(time.Until(deadline) - h.cfg.margin())
	}

	logger := log.WithContext(ctx).With(
		slog.String("request_type", string(event.RequestType)),
		slog.String("logical_resource_id", event.LogicalResourceID),
	)
	ctx = log.IntoContext(ctx, logger)
	logger.InfoContext(ctx, "received event",
		slog.String("stack_id", event.StackID),
		slog.String("request_id", event.RequestID),
	)

	res, err := h.execute(ctx, event)

	status := cfn.StatusSuccess
	reason := ""
	if err != nil {
		logger.ErrorContext(ctx, "invocation failed", slog.Any("error", err))

		status = cfn.StatusFailed
		reason = err.Error()
	}

	pubErr := reporter.Publish(ctx, status, res.data, res.physicalID, reason)
	if errors.Is(pubErr, cfn.ErrAlreadyPublished) {
		logger.WarnContext(ctx, "watchdog already reported, dropping late result")

		return nil
	}

	return pubErr
}

type result struct {
	data       map[string]any
	physicalID string
}

func (h *Handler) execute(ctx context.Context, event cfn.Event) (result, error) {
	res := result{physicalID: event.PhysicalResourceID}
	props := event.ResourceProperties

	src, err := kubeconfig.ParseSource(props.KubeConfigPath, props.KubeConfigKmsContext)
	if err != nil {
		return res, err
	}
	if err := h.fetcher.Fetch(ctx, src, h.cfg.KubeconfigPath()); err != nil {
		return res, err
	}

	obj, err := h.normalize(props.Manifest, event.StackID, res.physicalID)
	if err != nil {
		return res, err
	}
	if err := obj.WriteFile(h.cfg.ManifestPath()); err != nil {
		return res, err
	}

	log.WithContext(ctx).DebugContext(ctx, "applying manifest",
		slog.String("name", obj.GetName()),
		slog.String("namespace", obj.GetNamespace()),
	)

	switch event.RequestType {
	case cfn.RequestCreate:
		created, err := h.tool.Create(ctx, h.cfg.ManifestPath())
		if err != nil {
			return res, err
		}

		res.data = manifest.BuildOutput(created)

		selfLink := created.GetSelfLink()
		if selfLink == "" {
			return res, ErrMissingSelfLink
		}
		res.physicalID = selfLink

	case cfn.RequestUpdate:
		updated, err := h.tool.Apply(ctx, h.cfg.ManifestPath())
		if err != nil {
			return res, err
		}

		res.data = manifest.BuildOutput(updated)

	case cfn.RequestDelete:
		if IsFallbackPhysicalID(res.physicalID) {
			log.WithContext(ctx).InfoContext(ctx,
				"physical id does not identify a cluster object, nothing to delete",
				slog.String("physical_id", res.physicalID),
			)

			return res, nil
		}

		if err := h.tool.Delete(ctx, h.cfg.ManifestPath()); err != nil {
			return res, err
		}

	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownRequestType, event.RequestType)
	}

	return res, nil
}

// normalize names the manifest for its lifecycle position and coerces
// stringly-typed scalars, returning a fresh object.
func (h *Handler) normalize(m manifest.Object, stackID, physicalID string) (manifest.Object, error) {
	if m == nil {
		return nil, ErrMissingManifest
	}

	named, err := manifest.EnsureName(m, stackID, physicalID)
	if err != nil {
		return nil, err
	}

	coerced, ok := tree.CoerceTypes(map[string]any(named)).(map[string]any)
	if !ok {
		return nil, ErrMissingManifest
	}

	return manifest.Object(coerced), nil
}
