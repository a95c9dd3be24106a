// Package provider is the HTTP client for the out-of-process data provider
// adapter.
//
// The real provider SDK is binary-only and runs in its own sidecar process;
// the core talks to it over a narrow HTTP surface and stays decoupled from
// the SDK's runtime. Rows come back as schemaless JSON objects and are typed
// later by the normalizer.
package provider
