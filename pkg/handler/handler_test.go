package handler_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickstack/kubecfn/pkg/cfn"
	"github.com/quickstack/kubecfn/pkg/handler"
	"github.com/quickstack/kubecfn/pkg/kubeconfig"
	"github.com/quickstack/kubecfn/pkg/manifest"
)

const stackID = "arn:aws:cloudformation:us-east-1:123456789012:stack/MyStack/uuid"

// fallbackID has the shape of an execution-context identifier: a date path,
// a bracketed version literal, and a 32-hex suffix.
const fallbackID = "2024/01/02/[$LATEST]0123456789abcdef0123456789abcdef"

type fakeTool struct {
	createObj manifest.Object
	createErr error
	applyObj  manifest.Object
	applyErr  error
	deleteErr error

	createCalls int
	applyCalls  int
	deleteCalls int
	gotPath     string
}

func (f *fakeTool) Create(_ context.Context, path string) (manifest.Object, error) {
	f.createCalls++
	f.gotPath = path

	return f.createObj, f.createErr
}

func (f *fakeTool) Apply(_ context.Context, path string) (manifest.Object, error) {
	f.applyCalls++
	f.gotPath = path

	return f.applyObj, f.applyErr
}

func (f *fakeTool) Delete(_ context.Context, path string) error {
	f.deleteCalls++
	f.gotPath = path

	return f.deleteErr
}

type fakeFetcher struct {
	err error

	calls   int
	gotSrc  kubeconfig.Source
	gotDest string
}

func (f *fakeFetcher) Fetch(_ context.Context, src kubeconfig.Source, dest string) error {
	f.calls++
	f.gotSrc = src
	f.gotDest = dest

	return f.err
}

type fakeReporter struct {
	armed      []time.Duration
	status     cfn.Status
	data       map[string]any
	physicalID string
	reason     string
	published  int
	publishErr error
}

func (f *fakeReporter) ArmWatchdog(d time.Duration) {
	f.armed = append(f.armed, d)
}

func (f *fakeReporter) Publish(_ context.Context, status cfn.Status, data map[string]any, physicalID, reason string) error {
	f.published++
	f.status = status
	f.data = data
	f.physicalID = physicalID
	f.reason = reason

	return f.publishErr
}

func testEvent(t *testing.T, kind cfn.RequestType) cfn.Event {
	t.Helper()

	return cfn.Event{
		RequestType:       kind,
		ResponseURL:       "https://cloudformation.invalid/response",
		StackID:           stackID,
		RequestID:         "req-1",
		LogicalResourceID: "KubeManifest",
		ResourceProperties: cfn.ResourceProperties{
			Manifest: manifest.Object{
				"kind":     "Pod",
				"metadata": map[string]any{"name": "x"},
				"spec":     map[string]any{"replicas": "3"},
			},
			KubeConfigPath:       "s3://my-bucket/path/to/config",
			KubeConfigKmsContext: "ctx-value",
		},
	}
}

func newHandler(t *testing.T, tool *fakeTool, fetcher *fakeFetcher) *handler.Handler {
	t.Helper()

	return handler.New(handler.Config{WorkDir: t.TempDir()}, tool, fetcher)
}

func TestHandle_Create(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{
		createObj: manifest.Object{
			"metadata": map[string]any{
				"uid":      "u1",
				"selfLink": "/api/v1/namespaces/default/pods/x",
				"name":     "x",
			},
		},
	}
	fetcher := &fakeFetcher{}
	reporter := &fakeReporter{}

	h := newHandler(t, tool, fetcher)
	require.NoError(t, h.Handle(t.Context(), testEvent(t, cfn.RequestCreate), reporter))

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "my-bucket", fetcher.gotSrc.Bucket)
	assert.Equal(t, 1, tool.createCalls)

	assert.Equal(t, 1, reporter.published)
	assert.Equal(t, cfn.StatusSuccess, reporter.status)
	assert.Equal(t, "/api/v1/namespaces/default/pods/x", reporter.physicalID)
	assert.Equal(t, map[string]any{
		"uid":      "u1",
		"selfLink": "/api/v1/namespaces/default/pods/x",
		"name":     "x",
	}, reporter.data)
}

func TestHandle_CreateStagesNormalizedManifest(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{
		createObj: manifest.Object{"metadata": map[string]any{"selfLink": "/api/v1/pods/x"}},
	}
	h := newHandler(t, tool, &fakeFetcher{})

	event := testEvent(t, cfn.RequestCreate)
	event.ResourceProperties.Manifest = manifest.Object{
		"kind":     "Pod",
		"metadata": map[string]any{},
		"spec":     map[string]any{"replicas": "3", "paused": "False"},
	}

	require.NoError(t, h.Handle(t.Context(), event, &fakeReporter{}))

	data, err := os.ReadFile(tool.gotPath)
	require.NoError(t, err)

	staged, err := manifest.ParseObject(data)
	require.NoError(t, err)

	// Name generation and type coercion both happened before staging.
	assert.Equal(t, "cfn-mystack-", staged.Metadata()["generateName"])
	spec, _ := staged["spec"].(map[string]any)
	assert.EqualValues(t, 3, spec["replicas"])
	assert.Equal(t, false, spec["paused"])
}

func TestHandle_CreateRetryReusesPriorName(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{
		createObj: manifest.Object{"metadata": map[string]any{"selfLink": "/api/v1/pods/x"}},
	}
	h := newHandler(t, tool, &fakeFetcher{})

	event := testEvent(t, cfn.RequestCreate)
	event.PhysicalResourceID = "/api/v1/namespaces/ns/pods/foo-123"
	event.ResourceProperties.Manifest = manifest.Object{"metadata": map[string]any{}}

	require.NoError(t, h.Handle(t.Context(), event, &fakeReporter{}))

	data, err := os.ReadFile(tool.gotPath)
	require.NoError(t, err)

	staged, err := manifest.ParseObject(data)
	require.NoError(t, err)
	assert.Equal(t, "foo-123", staged.GetName())
}

func TestHandle_CreateWithoutSelfLinkFails(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{createObj: manifest.Object{"metadata": map[string]any{"uid": "u1"}}}
	reporter := &fakeReporter{}

	h := newHandler(t, tool, &fakeFetcher{})
	require.NoError(t, h.Handle(t.Context(), testEvent(t, cfn.RequestCreate), reporter))

	assert.Equal(t, cfn.StatusFailed, reporter.status)
	assert.Contains(t, reporter.reason, "selfLink")
}

func TestHandle_Update(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{
		applyObj: manifest.Object{
			"metadata": map[string]any{"uid": "u1", "resourceVersion": "8", "name": "x"},
		},
	}
	reporter := &fakeReporter{}

	event := testEvent(t, cfn.RequestUpdate)
	event.PhysicalResourceID = "/api/v1/namespaces/default/pods/x"

	h := newHandler(t, tool, &fakeFetcher{})
	require.NoError(t, h.Handle(t.Context(), event, reporter))

	assert.Equal(t, 1, tool.applyCalls)
	assert.Zero(t, tool.createCalls)

	// Update never rewrites the physical id.
	assert.Equal(t, cfn.StatusSuccess, reporter.status)
	assert.Equal(t, "/api/v1/namespaces/default/pods/x", reporter.physicalID)
	assert.Equal(t, "8", reporter.data["resourceVersion"])
}

func TestHandle_Delete(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		physicalID      string
		wantDeleteCalls int
	}{
		"real object id triggers delete": {
			physicalID:      "/api/v1/namespaces/default/pods/x",
			wantDeleteCalls: 1,
		},
		"fallback id means nothing to delete": {
			physicalID:      fallbackID,
			wantDeleteCalls: 0,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tool := &fakeTool{}
			reporter := &fakeReporter{}

			event := testEvent(t, cfn.RequestDelete)
			event.PhysicalResourceID = tc.physicalID

			h := newHandler(t, tool, &fakeFetcher{})
			require.NoError(t, h.Handle(t.Context(), event, reporter))

			assert.Equal(t, tc.wantDeleteCalls, tool.deleteCalls)
			assert.Equal(t, cfn.StatusSuccess, reporter.status)
			assert.Empty(t, reporter.data)
			assert.Equal(t, tc.physicalID, reporter.physicalID)
		})
	}
}

func TestHandle_ValidationErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		mutate     func(event *cfn.Event)
		wantReason string
	}{
		"malformed kubeconfig path": {
			mutate: func(event *cfn.Event) {
				event.ResourceProperties.KubeConfigPath = "https://example.com/config"
			},
			wantReason: "s3://bucket-name/path/to/config",
		},
		"missing manifest": {
			mutate: func(event *cfn.Event) {
				event.ResourceProperties.Manifest = nil
			},
			wantReason: "no manifest",
		},
		"unknown request type": {
			mutate: func(event *cfn.Event) {
				event.RequestType = "Replace"
			},
			wantReason: "unknown request type",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tool := &fakeTool{}
			reporter := &fakeReporter{}

			event := testEvent(t, cfn.RequestCreate)
			tc.mutate(&event)

			h := newHandler(t, tool, &fakeFetcher{})
			require.NoError(t, h.Handle(t.Context(), event, reporter))

			assert.Equal(t, cfn.StatusFailed, reporter.status)
			assert.Contains(t, reporter.reason, tc.wantReason)

			// Validation failures never reach the mutating tool.
			assert.Zero(t, tool.createCalls+tool.applyCalls+tool.deleteCalls)
		})
	}
}

func TestHandle_ExternalCallErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		tool       *fakeTool
		fetcher    *fakeFetcher
		wantReason string
	}{
		"fetch failure": {
			tool:       &fakeTool{},
			fetcher:    &fakeFetcher{err: errors.New("decrypt kubeconfig: access denied")},
			wantReason: "access denied",
		},
		"tool failure": {
			tool:       &fakeTool{createErr: errors.New("error validating data")},
			fetcher:    &fakeFetcher{},
			wantReason: "error validating data",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			reporter := &fakeReporter{}

			h := newHandler(t, tc.tool, tc.fetcher)
			require.NoError(t, h.Handle(t.Context(), testEvent(t, cfn.RequestCreate), reporter))

			assert.Equal(t, cfn.StatusFailed, reporter.status)
			assert.Contains(t, reporter.reason, tc.wantReason)
		})
	}
}

func TestHandle_ArmsWatchdogFromDeadline(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{
		createObj: manifest.Object{"metadata": map[string]any{"selfLink": "/api/v1/pods/x"}},
	}
	reporter := &fakeReporter{}

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	h := newHandler(t, tool, &fakeFetcher{})
	require.NoError(t, h.Handle(ctx, testEvent(t, cfn.RequestCreate), reporter))

	require.Len(t, reporter.armed, 1)
	assert.Greater(t, reporter.armed[0], 25*time.Second)
	assert.Less(t, reporter.armed[0], 30*time.Second)
}

func TestHandle_NoDeadlineSkipsWatchdog(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{
		createObj: manifest.Object{"metadata": map[string]any{"selfLink": "/api/v1/pods/x"}},
	}
	reporter := &fakeReporter{}

	h := newHandler(t, tool, &fakeFetcher{})
	require.NoError(t, h.Handle(context.Background(), testEvent(t, cfn.RequestCreate), reporter))

	assert.Empty(t, reporter.armed)
}

func TestHandle_LateResultAfterWatchdog(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{
		createObj: manifest.Object{"metadata": map[string]any{"selfLink": "/api/v1/pods/x"}},
	}
	reporter := &fakeReporter{publishErr: cfn.ErrAlreadyPublished}

	h := newHandler(t, tool, &fakeFetcher{})

	// The handler swallows the late-result case; the watchdog's report was
	// the terminal one.
	require.NoError(t, h.Handle(t.Context(), testEvent(t, cfn.RequestCreate), reporter))
}

func TestIsFallbackPhysicalID(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		id   string
		want bool
	}{
		"execution-context id":  {id: fallbackID, want: true},
		"self link":             {id: "/api/v1/namespaces/default/pods/x", want: false},
		"empty":                 {id: "", want: false},
		"wrong hash length":     {id: "2024/01/02/[$LATEST]abcdef", want: false},
		"uppercase hex":         {id: "2024/01/02/[$LATEST]0123456789ABCDEF0123456789ABCDEF", want: false},
		"missing version token": {id: "2024/01/02/0123456789abcdef0123456789abcdef", want: false},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, handler.IsFallbackPhysicalID(tc.id))
		})
	}
}
