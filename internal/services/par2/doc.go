// Package par2 wraps the par2 command-line parity generator. Parity archives
// are created next to their source with a fixed recovery-file count and
// redundancy percentage so every staged artifact carries its own repair data.
package par2
