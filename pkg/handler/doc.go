// Package handler implements the custom-resource lifecycle: it provisions
// the cluster configuration, normalizes the manifest, dispatches the
// create/update/delete mutation to the external tool, and reports exactly
// one terminal status per invocation.
package handler
