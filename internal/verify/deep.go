package verify

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// deepCheck decodes an artifact with an in-process reader to prove the
// bytes form a valid stream. Formats without a Go decoder are reported
// as skipped; names that are not derived artifacts return empty.
func deepCheck(name string, r io.Reader) (string, string) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".tar.gz"):
		return decodeChain(r, gzipReader, drainTar)
	case strings.HasSuffix(lower, ".tbz2"), strings.HasSuffix(lower, ".tar.bz2"):
		return decodeChain(r, bzip2Reader, drainTar)
	case strings.HasSuffix(lower, ".txz"), strings.HasSuffix(lower, ".tar.xz"):
		return decodeChain(r, xzReader, drainTar)
	case strings.HasSuffix(lower, ".tar.lzma"):
		return decodeChain(r, lzmaReader, drainTar)
	case strings.HasSuffix(lower, ".tlz"), strings.HasSuffix(lower, ".tar.lz"), strings.HasSuffix(lower, ".lz"):
		return DeepSkipped, "no in-process lzip decoder"
	case strings.HasSuffix(lower, ".tar"):
		if err := drainTar(r); err != nil {
			return DeepFailed, fmt.Sprintf("tar: %v", err)
		}
		return DeepOK, ""
	case strings.HasSuffix(lower, ".gz"):
		return decodeChain(r, gzipReader, drain)
	case strings.HasSuffix(lower, ".bz2"):
		return decodeChain(r, bzip2Reader, drain)
	case strings.HasSuffix(lower, ".xz"):
		return decodeChain(r, xzReader, drain)
	case strings.HasSuffix(lower, ".lzma"):
		return decodeChain(r, lzmaReader, drain)
	case strings.HasSuffix(lower, ".zip"):
		data, err := io.ReadAll(r)
		if err != nil {
			return DeepFailed, fmt.Sprintf("read: %v", err)
		}
		if err := checkZip(bytes.NewReader(data), int64(len(data))); err != nil {
			return DeepFailed, fmt.Sprintf("zip: %v", err)
		}
		return DeepOK, ""
	case strings.HasSuffix(lower, ".par2"):
		return DeepSkipped, "parity verification requires the par2 tool"
	case strings.HasSuffix(lower, ".7z"),
		strings.HasSuffix(lower, ".rar"),
		strings.HasSuffix(lower, ".lzh"),
		strings.HasSuffix(lower, ".arj"),
		strings.HasSuffix(lower, ".zoo"):
		return DeepSkipped, "no in-process decoder"
	}
	return "", ""
}

func decodeChain(r io.Reader, wrap func(io.Reader) (io.Reader, error), consume func(io.Reader) error) (string, string) {
	decoded, err := wrap(r)
	if err != nil {
		return DeepFailed, fmt.Sprintf("decode: %v", err)
	}
	if err := consume(decoded); err != nil {
		return DeepFailed, fmt.Sprintf("decode: %v", err)
	}
	return DeepOK, ""
}

func gzipReader(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

func bzip2Reader(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r), nil
}

func xzReader(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

func lzmaReader(r io.Reader) (io.Reader, error) {
	return lzma.NewReader(r)
}

// drain reads the stream to the end so checksummed formats validate
// their trailers.
func drain(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func drainTar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		_, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := drain(tr); err != nil {
			return err
		}
	}
}

func checkZip(r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return err
	}
	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name, err)
		}
		err = drain(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name, err)
		}
	}
	return nil
}
