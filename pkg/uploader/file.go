package uploader

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// File is something that can be streamed more than once.
type File interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type localFile struct {
	path string
	size int64
}

// LocalFile stats path and returns it as a File. Errors are reported by
// UploadVideo as validation failures.
func LocalFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &localFile{path: path, size: info.Size()}, nil
}

func (f *localFile) Name() string                 { return filepath.Base(f.path) }
func (f *localFile) Size() int64                  { return f.size }
func (f *localFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

type memFile struct {
	name string
	data []byte
}

// BytesFile wraps an in memory buffer.
func BytesFile(name string, data []byte) File {
	return &memFile{name: name, data: data}
}

func (f *memFile) Name() string { return f.name }
func (f *memFile) Size() int64  { return int64(len(f.data)) }
func (f *memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
