package manifest

// outputKeys is the metadata subset surfaced back to the orchestrator.
var outputKeys = []string{"uid", "selfLink", "resourceVersion", "namespace", "name"}

// BuildOutput extracts the surfaced metadata fields from a tool response
// object. Fields absent from the object's metadata are omitted, never
// defaulted.
func BuildOutput(o Object) map[string]any {
	md := o.Metadata()
	out := make(map[string]any, len(outputKeys))
	for _, key := range outputKeys {
		if v, ok := md[key]; ok {
			out[key] = v
		}
	}

	return out
}
