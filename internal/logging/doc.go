// Package logging assembles the structured slog loggers used across
// the balloon pipeline.
//
// It owns the console and JSON handlers, the -v/-q verbosity mapping,
// and a no-op logger for tests and wiring code that cannot fail. The
// console handler writes `LEVEL: message key=value` lines to stderr,
// matching what operators of the original tool expect to grep; the
// JSON handler is for wrapping the tool in other automation.
//
// Prefer these constructors over hand-rolled slog setup so every
// component emits the same shape.
package logging
