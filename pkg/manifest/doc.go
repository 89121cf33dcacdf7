// Package manifest models the Kubernetes object document managed by one
// custom-resource invocation: typed access to its metadata, deterministic
// naming across the resource lifecycle, and extraction of the metadata
// subset surfaced back to the orchestrator.
package manifest
