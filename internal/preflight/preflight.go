package preflight

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"ballooncd/internal/config"
	"ballooncd/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check a run depends on: output directory
// access, a free-space estimate, and tool availability. needBytes may
// be zero when no size estimate is known.
func RunAll(cfg *config.Config, outputDir string, needBytes int64, parityEnabled bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", outputDir),
		CheckFreeSpace("Free space", outputDir, needBytes),
	}
	for _, status := range CheckExternalTools(cfg, parityEnabled) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace compares the space available on the filesystem holding
// path against a rough estimate of what the run will write there. The
// estimate is loose: staging artifacts and the finished image both land
// on this filesystem.
func CheckFreeSpace(name, path string, needBytes int64) Result {
	_, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)
	if needBytes > 0 {
		detail = fmt.Sprintf("%s, estimated need %s", detail, humanize.IBytes(uint64(needBytes)))
		if free < uint64(needBytes) {
			return Result{Name: name, Detail: detail}
		}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

var statfs = realStatfs

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// toolDescriptions maps each external binary to what the pipeline uses it for.
var toolDescriptions = map[string]string{
	"zip":         "Produces .zip archives (with test pass)",
	"tar":         "Produces the .tar archive the compressors revisit",
	"7z":          "Produces .7z archives",
	"rar":         "Produces .rar archives with recovery records",
	"jlha":        "Produces .lzh archives",
	"arj":         "Produces .arj archives",
	"zoo":         "Produces .zoo archives",
	"gzip":        "Produces .gz compressed copies",
	"bzip2":       "Produces .bz2 compressed copies",
	"lzip":        "Produces .lz compressed copies",
	"lzma":        "Produces .lzma compressed copies",
	"xz":          "Produces .xz compressed copies",
	"par2":        "Generates parity recovery files",
	"genisoimage": "Authors the ISO9660/UDF image",
	"dvdisaster":  "Adds error-correction data to the image",
}

// CheckExternalTools evaluates every binary the pipeline may invoke,
// honoring [tools] overrides from the config. When parity is disabled
// for the run, par2 is reported as optional.
func CheckExternalTools(cfg *config.Config, parityEnabled bool) []deps.Status {
	tools := cfg.ExternalTools()
	requirements := make([]deps.Requirement, 0, len(tools))
	for _, tool := range tools {
		requirements = append(requirements, deps.Requirement{
			Name:        tool.Name,
			Command:     tool.Binary,
			Description: toolDescriptions[tool.Name],
			Optional:    tool.Name == "par2" && !parityEnabled,
		})
	}
	return deps.CheckBinaries(requirements)
}
