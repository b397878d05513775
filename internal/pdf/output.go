package pdf

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutputExists = errors.New("output file already exists")

// ResolveOutput appends ".pdf" to name when missing and derives the document
// title from the file name without its extension.
func ResolveOutput(name string) (path, title string) {
	path = name
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		path += ".pdf"
	}
	base := filepath.Base(path)
	title = base[:len(base)-len(".pdf")]
	return path, title
}

// OutputFile is a PDF being written to disk. It is created exclusively and
// removed again by Abort.
type OutputFile struct {
	path string
	file *os.File
	buf  *bufio.Writer
	done bool
}

func CreateOutput(path string) (*OutputFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &OutputFile{
		path: path,
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

func (o *OutputFile) Path() string {
	return o.path
}

func (o *OutputFile) Write(p []byte) (int, error) {
	return o.buf.Write(p)
}

// Commit flushes and closes the file.
func (o *OutputFile) Commit() error {
	if o.done {
		return nil
	}
	o.done = true

	if err := o.buf.Flush(); err != nil {
		o.file.Close()
		os.Remove(o.path)
		return fmt.Errorf("write output file: %w", err)
	}
	if err := o.file.Sync(); err != nil {
		o.file.Close()
		os.Remove(o.path)
		return fmt.Errorf("sync output file: %w", err)
	}
	if err := o.file.Close(); err != nil {
		os.Remove(o.path)
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

// Abort closes and deletes a file that was not committed.
func (o *OutputFile) Abort() error {
	if o.done {
		return nil
	}
	o.done = true

	o.file.Close()
	if err := os.Remove(o.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove partial output: %w", err)
	}
	return nil
}
