// Package services hosts shared plumbing for the external tool clients:
// sentinel errors with stage-aware wrapping, context annotations for run
// metadata, and the command executor the per-tool packages build on.
package services
