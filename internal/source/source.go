// Package source reads Python source files for analysis.
//
// A read is a single bounded acquisition: the file is opened, read up to the
// configured limit and closed on every path. Anything that prevents a
// complete, valid UTF-8 read is an error; there are no partial results.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/pydeps/pkg/safeconv"
)

// DefaultMaxSize is the read limit used when none is configured.
const DefaultMaxSize = 1 << 20 // 1 MiB.

// LanguagePython is the enry name for Python.
const LanguagePython = "Python"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sentinel errors for source reads.
var (
	// ErrEmptyPath indicates a path argument was empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrPathContainsNUL indicates the path contains a NUL byte.
	ErrPathContainsNUL = errors.New("path contains NUL byte")
	// ErrDirectoryPath indicates the path points to a directory.
	ErrDirectoryPath = errors.New("path points to a directory")
	// ErrFileTooLarge indicates the file exceeds the read limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrNotUTF8 indicates the file is not valid UTF-8.
	ErrNotUTF8 = errors.New("file is not valid UTF-8")
)

// File is a fully read source file.
type File struct {
	// Path is the absolute, cleaned path that was read.
	Path string
	// Content is the file text without a UTF-8 byte order mark.
	Content []byte
	// Language is the enry language guess, e.g. "Python". May be empty.
	Language string
}

// Reader reads source files with a size limit.
type Reader struct {
	// MaxSize is the largest accepted file in bytes. Zero uses DefaultMaxSize.
	MaxSize uint64
}

// Read resolves path, reads it fully and validates its encoding.
func (r Reader) Read(ctx context.Context, path string) (*File, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	resolved, size, err := resolve(path)
	if err != nil {
		return nil, err
	}

	limit := r.limit()
	if size > limit {
		return nil, tooLarge(resolved, size, limit)
	}

	//nolint:gosec // resolved is normalized and existence/type checked in resolve.
	file, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", resolved, err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, safeconv.Uint64ToInt64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resolved, err)
	}

	if safeconv.LenToUint64(len(content)) > limit {
		return nil, tooLarge(resolved, safeconv.LenToUint64(len(content)), limit)
	}

	return NewFile(resolved, content)
}

// NewFile validates in-memory content as if it had been read from path.
func NewFile(path string, content []byte) (*File, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrNotUTF8, path)
	}

	return &File{
		Path:     path,
		Content:  content,
		Language: Detect(path, content),
	}, nil
}

// Detect guesses the language of content from its file name and text.
func Detect(path string, content []byte) string {
	return enry.GetLanguage(filepath.Base(path), content)
}

// IsPython reports whether the detected language is Python.
func (f *File) IsPython() bool {
	return f.Language == LanguagePython
}

func (r Reader) limit() uint64 {
	if r.MaxSize == 0 {
		return DefaultMaxSize
	}

	return r.MaxSize
}

func resolve(path string) (string, uint64, error) {
	if strings.TrimSpace(path) == "" {
		return "", 0, ErrEmptyPath
	}

	if strings.ContainsRune(path, '\x00') {
		return "", 0, fmt.Errorf("%w: %q", ErrPathContainsNUL, path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", 0, fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", absPath, err)
	}

	if info.IsDir() {
		return "", 0, fmt.Errorf("%w: %s", ErrDirectoryPath, absPath)
	}

	return absPath, safeconv.SizeToUint64(info.Size()), nil
}

func tooLarge(path string, size, limit uint64) error {
	return fmt.Errorf("%w: %s is %s (limit %s)", ErrFileTooLarge, path, humanize.IBytes(size), humanize.IBytes(limit))
}
