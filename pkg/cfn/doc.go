// Package cfn implements the CloudFormation custom-resource protocol: the
// invocation event consumed by the handler, and the terminal status report
// delivered to the pre-signed response URL.
//
// A [Publisher] guarantees exactly one terminal report per invocation. A
// watchdog can be armed to report failure shortly before the caller's own
// time budget expires; the race between watchdog and main path is resolved
// by timer cancellation plus a once guard, never by double delivery.
package cfn
