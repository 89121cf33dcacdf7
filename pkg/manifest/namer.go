package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStackID is returned when a stack identifier does not contain a
// stack name segment.
var ErrInvalidStackID = errors.New("invalid stack id")

// EnsureName returns a copy of the object with a deterministic or generated
// name injected into its metadata. The input is never mutated.
//
// It only acts when the object has a metadata map with neither name nor
// generateName set:
//
//   - With a physical id from a prior run, metadata.name is set to the last
//     "/"-delimited segment of that id, recovering the object name from a
//     self-link shaped identifier. Update and Delete then address the exact
//     object created earlier.
//   - Otherwise metadata.generateName is set to "cfn-<stackName>-"
//     (lower-cased), where stackName is the second "/"-delimited segment of
//     the stack ARN, and the server generates a unique name on Create.
func EnsureName(o Object, stackID, physicalID string) (Object, error) {
	md := o.Metadata()
	if md == nil {
		return o, nil
	}
	if _, ok := md["name"]; ok {
		return o, nil
	}
	if _, ok := md["generateName"]; ok {
		return o, nil
	}

	out := o.Copy()
	outMD := out.Metadata()

	if physicalID != "" {
		parts := strings.Split(physicalID, "/")
		outMD["name"] = parts[len(parts)-1]

		return out, nil
	}

	stackName, err := stackNameFromID(stackID)
	if err != nil {
		return nil, err
	}
	outMD["generateName"] = fmt.Sprintf("cfn-%s-", strings.ToLower(stackName))

	return out, nil
}

// stackNameFromID extracts the stack name from an ARN-like stack identifier,
// e.g. "arn:aws:cloudformation:us-east-1:123456789012:stack/MyStack/uuid".
func stackNameFromID(stackID string) (string, error) {
	parts := strings.Split(stackID, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("%w: %q has no stack name segment", ErrInvalidStackID, stackID)
	}

	return parts[1], nil
}
