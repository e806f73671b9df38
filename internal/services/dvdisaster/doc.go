// Package dvdisaster wraps the dvdisaster ECC tool. Finished images are
// augmented in place with RS02-style recovery data so the disc survives
// sector-level damage that reaches past the filesystem's own redundancy.
package dvdisaster
