// Package kubeconfig provisions the cluster configuration consumed by the
// external tool: an encrypted blob fetched from an object store, decrypted
// through an envelope-encryption service, and written to a local path.
package kubeconfig
