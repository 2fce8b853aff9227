package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// FileSet manages a collection of source files and provides byte offset resolution.
// It is safe for concurrent use: the directory driver loads files from several goroutines.
type FileSet struct {
	mu      sync.RWMutex
	files   []*File
	index   map[string]FileID // path -> latest id
	baseDir string            // базовая директория для относительных путей
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]*File, 0),
		index: make(map[string]FileID),
	}
}

// NewFileSetWithBase создаёт FileSet с заданной базовой директорией.
func NewFileSetWithBase(baseDir string) *FileSet {
	fs := NewFileSet()
	fs.baseDir = baseDir
	return fs
}

// SetBaseDir sets the directory relative paths are computed against.
func (fileSet *FileSet) SetBaseDir(dir string) {
	fileSet.mu.Lock()
	fileSet.baseDir = dir
	fileSet.mu.Unlock()
}

// BaseDir returns the base directory, falling back to the working directory.
func (fileSet *FileSet) BaseDir() string {
	fileSet.mu.RLock()
	dir := fileSet.baseDir
	fileSet.mu.RUnlock()
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return dir
}

// Add stores a document snapshot, indexes its lines and returns a new FileID.
// Re-adding an existing path creates a new version; GetLatest follows the newest one.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	file := &File{
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
		lines:   strings.Split(string(content), "\n"),
	}

	fileSet.mu.Lock()
	defer fileSet.mu.Unlock()
	n, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	file.ID = FileID(n)
	fileSet.files = append(fileSet.files, file)
	fileSet.index[file.Path] = file.ID
	return file.ID
}

// Load reads a file from disk, strips a BOM, normalizes CRLF and NFC, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	if !norm.NFC.IsNormal(content) {
		content = norm.NFC.Bytes(content)
		flags |= FileNormalizedNFC
	}
	return fileSet.Add(path, content, flags), nil
}

// AddVirtual adds an in-memory document (editor buffer, stdin, test).
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file for the given ID.
func (fileSet *FileSet) Get(id FileID) *File {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return fileSet.files[id]
}

// Len reports how many file versions the set holds.
func (fileSet *FileSet) Len() int {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return len(fileSet.files)
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into 1-based line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Get(span.File)
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Lines returns the document split on '\n'. Empty lines are preserved and
// empty content yields a single empty line. The slice must not be modified.
func (f *File) Lines() []string {
	if f.lines == nil {
		f.lines = strings.Split(string(f.Content), "\n")
	}
	return f.lines
}

// LineCount returns the number of lines, which is always at least one.
func (f *File) LineCount() int {
	return len(f.LineIdx) + 1
}

// Line returns the 0-based line i without its terminator, or "" when out of range.
func (f *File) Line(i int) string {
	if i < 0 || i >= f.LineCount() {
		return ""
	}
	return f.Lines()[i]
}

// LineStart returns the byte offset of the first byte of 0-based line i.
func (f *File) LineStart(i int) uint32 {
	switch {
	case i <= 0:
		return 0
	case i > len(f.LineIdx):
		return f.size()
	default:
		return f.LineIdx[i-1] + 1
	}
}

// LineSpan covers line i from its first byte up to (not including) its '\n'.
func (f *File) LineSpan(i int) Span {
	start := f.LineStart(i)
	return Span{File: f.ID, Start: start, End: start + f.conv(len(f.Line(i)))}
}

// PointSpan is an empty span at the given 0-based line and byte column.
func (f *File) PointSpan(line, col int) Span {
	off := f.LineStart(line) + f.conv(col)
	return Span{File: f.ID, Start: off, End: off}
}

// ColSpan covers byte columns [startCol, endCol) of 0-based line.
func (f *File) ColSpan(line, startCol, endCol int) Span {
	base := f.LineStart(line)
	return Span{File: f.ID, Start: base + f.conv(startCol), End: base + f.conv(endCol)}
}

// FullSpan covers the whole document.
func (f *File) FullSpan() Span {
	return Span{File: f.ID, Start: 0, End: f.size()}
}

// Ext returns the file extension including the dot, e.g. ".c".
func (f *File) Ext() string {
	return filepath.Ext(f.Path)
}

// GetLine returns the 1-based line lineNum, or "" if it does not exist.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	return f.Line(int(lineNum) - 1)
}

func (f *File) size() uint32 {
	return f.conv(len(f.Content))
}

func (f *File) conv(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s: offset overflow: %w", f.Path, err))
	}
	return v
}

// FormatPath formats the file path according to mode:
// "absolute", "relative", "basename" or "auto".
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := AbsolutePath(f.Path); err == nil {
			return abs
		}
		return f.Path

	case "relative":
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		if rel, err := RelativePath(f.Path, baseDir); err == nil {
			return rel
		}
		return f.Path

	case "basename":
		return BaseName(f.Path)

	case "auto":
		// короткие и относительные пути оставляем как есть
		if len(f.Path) < 40 || !filepath.IsAbs(f.Path) {
			return f.Path
		}
		return BaseName(f.Path)

	default:
		return f.Path
	}
}
