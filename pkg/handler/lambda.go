package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/quickstack/kubecfn/pkg/cfn"
)

// Lambda adapts the handler to the Lambda runtime contract. Each event gets
// its own publisher, seeded with the execution context's log stream name as
// the fallback physical id.
func (h *Handler) Lambda(opts ...cfn.PublisherOpt) func(ctx context.Context, event cfn.Event) error {
	return func(ctx context.Context, event cfn.Event) error {
		return h.Handle(ctx, event, cfn.NewPublisher(event, lambdacontext.LogStreamName, opts...))
	}
}
