// Package kubectl invokes the external cluster command-line tool against a
// manifest document staged on local disk.
//
// The subprocess environment is explicit configuration: the kubeconfig path
// and an optional tool binary directory are passed into the [Tool] and
// materialized as KUBECONFIG and a prepended PATH for the child process
// only, never as ambient process state.
package kubectl
