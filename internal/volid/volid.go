// Package volid resolves the volume identifier stamped into the generated
// image. Explicit identifiers win; otherwise the label derives from the first
// input's base name. Identifiers never exceed 32 characters.
package volid

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxLength is the volume identifier capacity of an ISO9660 header.
const MaxLength = 32

// Resolve returns the volume identifier for a run: the explicit value when
// supplied, otherwise one derived from the first input path. Either way the
// result is truncated to MaxLength characters.
func Resolve(explicit string, inputs []string) string {
	if explicit != "" {
		return Truncate(explicit)
	}
	return Derive(inputs)
}

// Derive builds a volume identifier from the first input's base name. The
// name is used verbatim apart from truncation, even when that input turns out
// not to exist.
func Derive(inputs []string) string {
	if len(inputs) == 0 {
		return ""
	}
	return Truncate(filepath.Base(inputs[0]))
}

// Truncate caps an identifier at MaxLength characters without splitting a
// multi-byte character.
func Truncate(id string) string {
	runes := []rune(id)
	if len(runes) <= MaxLength {
		return id
	}
	return string(runes[:MaxLength])
}

// IsPortable reports whether every character of id belongs to the strict
// ISO9660 d-character set (A-Z, 0-9, underscore). Authoring tools accept
// looser labels, but pre-1995 operating systems may not.
func IsPortable(id string) bool {
	for _, r := range id {
		if !isDChar(r) {
			return false
		}
	}
	return true
}

// Portable maps an identifier onto the strict d-character set: letters are
// uppercased, runs of other characters collapse to a single underscore. Used
// to suggest a compliant label when warning about a non-portable one.
func Portable(id string) string {
	upper := cases.Upper(language.Und).String(id)
	var b strings.Builder
	b.Grow(len(upper))
	pendingSep := false
	for _, r := range upper {
		if isDChar(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return Truncate(b.String())
}

func isDChar(r rune) bool {
	return r == '_' || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
