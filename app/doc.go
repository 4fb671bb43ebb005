// Package app assembles a running library from a config.Config: the persistence backend,
// the three stores loaded in parallel, the bibliographic lookup client, and the coordinator.
package app
