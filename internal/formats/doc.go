// Package formats holds the static registry of external archive and
// compression tools the balloon pipeline drives.
//
// The tables are ordered: artifact production follows table order, and
// every entry is always applied; nothing here selects formats.
// Extensions are unique within a table. The rename table maps the
// unwieldy tar+compressor compound extensions onto their conventional
// short forms.
package formats
