// Package graph defines the design graph types for kerf.
// The design graph is an immutable DAG of primitives, transforms,
// Boolean combinations and groups that describes a model to build.
package graph
