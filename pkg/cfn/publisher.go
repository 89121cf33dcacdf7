package cfn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/quickstack/kubecfn/pkg/log"
)

// DefaultWatchdogMargin is how long before the caller's own deadline the
// watchdog reports failure, leaving enough budget for the report itself.
const DefaultWatchdogMargin = 500 * time.Millisecond

// ErrAlreadyPublished is returned when a terminal report was already sent,
// usually because the watchdog fired first.
var ErrAlreadyPublished = errors.New("terminal report already published")

// Publisher delivers the terminal status report for one invocation, exactly
// once. The zero value is not usable; construct with [NewPublisher].
type Publisher struct {
	tracer     trace.Tracer
	httpClient *http.Client
	timer      *time.Timer
	event      Event
	// logStream is the execution-context identifier; it doubles as the
	// fallback physical resource id and the default failure reason pointer.
	logStream string

	once sync.Once
	mu   sync.Mutex
}

type PublisherOpt func(*Publisher)

// WithHTTPClient overrides the HTTP client used for delivery.
func WithHTTPClient(c *http.Client) PublisherOpt {
	return func(p *Publisher) {
		p.httpClient = c
	}
}

func NewPublisher(event Event, logStream string, opts ...PublisherOpt) *Publisher {
	p := &Publisher{
		tracer:     otel.Tracer("cfn-publisher"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		event:      event,
		logStream:  logStream,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ArmWatchdog schedules a failure report to fire after d, so the
// orchestrator hears back even if the main path overruns its budget. The
// watchdog report carries empty data and no physical-id override.
//
// A non-positive d fires immediately; callers with no deadline simply skip
// arming.
func (p *Publisher) ArmWatchdog(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		return
	}

	p.timer = time.AfterFunc(d, func() {
		slog.Error("execution is about to time out, reporting failure to the orchestrator")

		err := p.publish(context.Background(), StatusFailed, nil, "", "")
		if err != nil && !errors.Is(err, ErrAlreadyPublished) {
			slog.Error("watchdog report failed", slog.Any("error", err))
		}
	})
}

// Publish cancels the watchdog and sends the terminal report. The second and
// any later call returns [ErrAlreadyPublished] without sending anything.
//
// physicalID preference on the wire: the explicit physicalID argument, then
// the id carried by the event, then the execution-context identifier. Data
// is included only when non-empty.
func (p *Publisher) Publish(ctx context.Context, status Status, data map[string]any, physicalID, reason string) error {
	p.disarm()

	return p.publish(ctx, status, data, physicalID, reason)
}

func (p *Publisher) disarm() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
}

func (p *Publisher) publish(ctx context.Context, status Status, data map[string]any, physicalID, reason string) error {
	err := ErrAlreadyPublished
	p.once.Do(func() {
		err = p.send(ctx, status, data, physicalID, reason)
	})

	return err
}

func (p *Publisher) send(ctx context.Context, status Status, data map[string]any, physicalID, reason string) error {
	ctx, span := p.tracer.Start(ctx, "send")
	defer span.End()

	if reason == "" {
		reason = "See details in CloudWatch Log Stream: " + p.logStream
	}

	resp := Response{
		Status:             status,
		Reason:             reason,
		PhysicalResourceID: p.physicalID(physicalID),
		StackID:            p.event.StackID,
		RequestID:          p.event.RequestID,
		LogicalResourceID:  p.event.LogicalResourceID,
	}
	if len(data) > 0 {
		resp.Data = data
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.event.ResponseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build response request: %w", err)
	}
	// The pre-signed URL was signed without a content type; sending one
	// invalidates the signature.
	req.Header.Set("Content-Type", "")

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver response: %w", err)
	}
	defer httpResp.Body.Close() //nolint:errcheck // Nothing useful to do on close failure.

	if httpResp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("deliver response: unexpected status %s", httpResp.Status)
	}

	log.WithContext(ctx).DebugContext(ctx, "terminal report delivered",
		slog.String("status", string(status)),
		slog.String("http_status", httpResp.Status),
	)

	return nil
}

func (p *Publisher) physicalID(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p.event.PhysicalResourceID != "" {
		return p.event.PhysicalResourceID
	}

	return p.logStream
}
