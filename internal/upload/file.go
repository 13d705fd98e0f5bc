package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is sent when the type cannot be determined
const DefaultContentType = "application/octet-stream"

// File is a payload to upload. Size is -1 when unknown.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// OpenFile opens path for upload and detects its MIME type from content.
// The caller closes the returned closer once the flow is done.
func OpenFile(path string) (*File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}

	return &File{
		Name:        filepath.Base(path),
		ContentType: baseType(mtype),
		Size:        info.Size(),
		Body:        f,
	}, f, nil
}

// FromBytes builds a File from memory, detecting the type when contentType is empty
func FromBytes(name, contentType string, data []byte) *File {
	if contentType == "" {
		contentType = baseType(mimetype.Detect(data))
	}
	return &File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}
}

// baseType drops parameters such as "; charset=utf-8"
func baseType(m *mimetype.MIME) string {
	if m == nil {
		return DefaultContentType
	}
	s, _, _ := strings.Cut(m.String(), ";")
	if s == "" {
		return DefaultContentType
	}
	return s
}
