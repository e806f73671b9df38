// Package genisoimage wraps the genisoimage ISO-authoring tool. Images are
// built with Joliet, Rock Ridge, and a UDF bridge in parallel so the same
// payload is reachable through several filesystem structures, and every
// top-level staging entry is grafted into the image root under its own name.
package genisoimage
