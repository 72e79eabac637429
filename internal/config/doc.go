// Package config defines the immutable run configuration for the bootstrap
// pipeline.
//
// A [Config] is constructed exactly once at process entry, from the
// environment and optionally a YAML file, and threaded explicitly through
// every stage. Stages never read the environment themselves, so the
// observable behavior of a run is fixed by the value built at entry.
package config
