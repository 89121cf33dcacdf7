package manifest

import (
	"fmt"
	"os"

	"github.com/quickstack/kubecfn/pkg/tree"
	"github.com/quickstack/kubecfn/pkg/yaml"
)

// Object is a Kubernetes object document: a map of fields as submitted in
// the resource properties or returned by the cluster tool.
type Object map[string]any

// ParseObject decodes a YAML or JSON document into an [Object].
func ParseObject(data []byte) (Object, error) {
	var o Object
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse object: %w", err)
	}

	return o, nil
}

// Metadata returns the object's metadata map, or nil when it is absent or
// not a map.
func (o Object) Metadata() map[string]any {
	md, ok := o["metadata"].(map[string]any)
	if !ok {
		return nil
	}

	return md
}

// GetName returns metadata.name, or an empty string when unset.
func (o Object) GetName() string {
	return o.metadataString("name")
}

// GetNamespace returns metadata.namespace, or an empty string when unset.
func (o Object) GetNamespace() string {
	return o.metadataString("namespace")
}

// GetSelfLink returns metadata.selfLink, or an empty string when unset.
func (o Object) GetSelfLink() string {
	return o.metadataString("selfLink")
}

func (o Object) metadataString(key string) string {
	if v, ok := o.Metadata()[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

// Copy returns a deep copy of the object. The copy shares no maps or slices
// with the original.
func (o Object) Copy() Object {
	if o == nil {
		return nil
	}

	c, ok := tree.Walk(map[string]any(o), nil).(map[string]any)
	if !ok {
		return nil
	}

	return Object(c)
}

// WriteFile serializes the object as JSON to the given path, for tools that
// consume a manifest document on local disk.
func (o Object) WriteFile(path string) error {
	data, err := yaml.MarshalJSON(map[string]any(o))
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
