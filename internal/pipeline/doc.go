// Package pipeline runs one complete image build: stage every input
// with its derived artifacts, generate parity, seal the manifest,
// author the ISO, augment it with recovery sectors, and record the run
// in the catalog. The staging directory is removed on every exit path.
package pipeline
