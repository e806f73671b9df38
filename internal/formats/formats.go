package formats

// Tool pairs an artifact extension with the external command that
// produces it. Argv carries the command name and its fixed flags;
// callers append the target arguments.
type Tool struct {
	Ext  string
	Argv []string
}

// Command returns the executable name for the tool.
func (t Tool) Command() string {
	return t.Argv[0]
}

// Args builds the argument list for one invocation: the tool's fixed
// flags followed by extra.
func (t Tool) Args(extra ...string) []string {
	args := make([]string, 0, len(t.Argv)-1+len(extra))
	args = append(args, t.Argv[1:]...)
	args = append(args, extra...)
	return args
}

// TarExt is the archiver extension the compressor pass revisits: the
// kept .tar is recompressed by every compressor in turn.
const TarExt = ".tar"

// Par2Ext marks parity artifacts so the parity pass never protects its
// own output.
const Par2Ext = ".par2"

// Archivers, in priority order. rar's -rr adds the format's own
// recovery record; zip's -T test-extracts after writing.
var Archivers = []Tool{
	{Ext: ".zip", Argv: []string{"zip", "-rT"}},
	{Ext: TarExt, Argv: []string{"tar", "cf"}},
	{Ext: ".7z", Argv: []string{"7z", "a", "-y"}},
	{Ext: ".rar", Argv: []string{"rar", "a", "-r", "-rr", "-t", "-y"}},
	{Ext: ".lzh", Argv: []string{"jlha", "a"}},
	{Ext: ".arj", Argv: []string{"arj", "a", "-r", "-hk", "-y"}},
	{Ext: ".zoo", Argv: []string{"zoo", "ah"}},
}

// Compressors, in priority order. Every entry keeps its input (-k) so
// one source yields one artifact per compressor.
var Compressors = []Tool{
	{Ext: ".gz", Argv: []string{"gzip", "-k"}},
	{Ext: ".bz2", Argv: []string{"bzip2", "-k"}},
	{Ext: ".lz", Argv: []string{"lzip", "-k"}},
	{Ext: ".lzma", Argv: []string{"lzma", "-k"}},
	{Ext: ".xz", Argv: []string{"xz", "-k"}},
}

// Rename maps a tar+compressor compound extension to its short form.
type Rename struct {
	From string
	To   string
}

// TarRenames lists the compound extensions that get canonical short
// forms after the compressor pass. .tar.lzma has no conventional short
// form and stays as produced.
var TarRenames = []Rename{
	{From: ".tar.bz2", To: ".tbz2"},
	{From: ".tar.gz", To: ".tgz"},
	{From: ".tar.lz", To: ".tlz"},
	{From: ".tar.xz", To: ".txz"},
}

// Binaries returns the distinct executable names across both tables,
// in table order, for availability reporting.
func Binaries() []string {
	seen := make(map[string]struct{}, len(Archivers)+len(Compressors))
	names := make([]string, 0, len(Archivers)+len(Compressors))
	for _, tools := range [][]Tool{Archivers, Compressors} {
		for _, t := range tools {
			name := t.Command()
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}
