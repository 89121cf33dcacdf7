package cfn

import (
	"github.com/quickstack/kubecfn/pkg/manifest"
)

// RequestType is the lifecycle request kind of an invocation.
type RequestType string

const (
	RequestCreate RequestType = "Create"
	RequestUpdate RequestType = "Update"
	RequestDelete RequestType = "Delete"
)

// Event is the immutable input for one handler run, as delivered by the
// orchestrator.
type Event struct {
	RequestType        RequestType        `json:"RequestType"`
	ResponseURL        string             `json:"ResponseURL"`
	StackID            string             `json:"StackId"`
	RequestID          string             `json:"RequestId"`
	LogicalResourceID  string             `json:"LogicalResourceId"`
	PhysicalResourceID string             `json:"PhysicalResourceId,omitempty"`
	ResourceProperties ResourceProperties `json:"ResourceProperties"`
}

// ResourceProperties carries the custom-resource inputs: the manifest to
// manage and the location of the encrypted cluster configuration.
type ResourceProperties struct {
	Manifest             manifest.Object `json:"Manifest"`
	KubeConfigPath       string          `json:"KubeConfigPath"`
	KubeConfigKmsContext string          `json:"KubeConfigKmsContext"`
}
