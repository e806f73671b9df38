package testsupport

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/filesystem/iso9660"

	"ballooncd/internal/fsutil"
)

// BuildISO seals a staged directory into a Rock Ridge ISO the same way
// the pipeline's image stage does, minus the external tooling.
func BuildISO(t testing.TB, srcDir, outPath, label string) {
	t.Helper()

	size := fsutil.DirSize(srcDir)*2 + 4*1024*1024
	var blockSize diskfs.SectorSize = 2048
	d, err := diskfs.Create(outPath, size, diskfs.Raw, blockSize)
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	spec := disk.FilesystemSpec{Partition: 0, FSType: filesystem.TypeISO9660, VolumeLabel: label}
	fs, err := d.CreateFilesystem(spec)
	if err != nil {
		t.Fatalf("create filesystem: %v", err)
	}

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			return fs.Mkdir(rel)
		}
		dst, err := fs.OpenFile(rel, os.O_CREATE|os.O_RDWR)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		t.Fatalf("populate image: %v", err)
	}

	iso, ok := fs.(*iso9660.FileSystem)
	if !ok {
		t.Fatal("filesystem is not iso9660")
	}
	opts := iso9660.FinalizeOptions{RockRidge: true, VolumeIdentifier: label}
	if err := iso.Finalize(opts); err != nil {
		t.Fatalf("finalize image: %v", err)
	}
}
