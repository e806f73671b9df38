// Package verify reads a finished image back and checks its contents
// against the embedded manifest.
//
// The surface check re-hashes every embedded file with BLAKE3 and
// compares size and digest against the manifest entry. The optional
// deep check additionally decodes artifacts that have pure-Go readers
// (zip, gzip, bzip2, xz, lzma, tar and their compounds); formats
// without one are reported as skipped rather than failed. Extra files
// not listed in the manifest are reported but never fail verification.
package verify
