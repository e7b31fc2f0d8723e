package dataset

import (
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a source file is compressed.
type Compression int

const (
	// CompressionAuto detects compression from the file extension.
	CompressionAuto Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZstd
	CompressionLZ4
	CompressionBzip2
)

var compressionExts = map[string]Compression{
	".gz":   CompressionGzip,
	".gzip": CompressionGzip,
	".zst":  CompressionZstd,
	".zstd": CompressionZstd,
	".lz4":  CompressionLZ4,
	".bz2":  CompressionBzip2,
}

func (c Compression) String() string {
	switch c {
	case CompressionAuto:
		return "auto"
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionBzip2:
		return "bzip2"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// DetectCompression infers compression from a path's extension.
func DetectCompression(path string) Compression {
	if c, ok := compressionExts[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return CompressionNone
}

// defaultDelimiter picks tab for .tsv/.tab sources (after any compression
// extension) and comma otherwise.
func defaultDelimiter(path string) rune {
	lower := strings.ToLower(path)
	if _, ok := compressionExts[filepath.Ext(lower)]; ok {
		lower = strings.TrimSuffix(lower, filepath.Ext(lower))
	}
	switch filepath.Ext(lower) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}

// checkReadable classifies why path cannot be read, if it cannot.
func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return classifyOpenError(path, err)
	}
	if info.IsDir() {
		return loadError(KindNotFound, path, fmt.Errorf("%s is a directory", path))
	}
	return nil
}

func classifyOpenError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return loadError(KindNotFound, path, err)
	case errors.Is(err, fs.ErrPermission):
		return loadError(KindPermissionDenied, path, err)
	default:
		return loadError(KindUnexpectedParse, path, err)
	}
}

// multiCloser closes a decompressor and then the file beneath it.
type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openSource opens path and wraps it in the decompressor for c.
// Decompressor setup failures are reported as parse errors.
func openSource(path string, c Compression) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}

	if c == CompressionAuto {
		c = DetectCompression(path)
	}

	switch c {
	case CompressionNone:
		return f, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, loadError(KindUnexpectedParse, path, fmt.Errorf("gzip: %w", err))
		}
		return &multiCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, loadError(KindUnexpectedParse, path, fmt.Errorf("zstd: %w", err))
		}
		rc := dec.IOReadCloser()
		return &multiCloser{Reader: rc, closers: []func() error{rc.Close, f.Close}}, nil
	case CompressionLZ4:
		return &multiCloser{Reader: lz4.NewReader(f), closers: []func() error{f.Close}}, nil
	case CompressionBzip2:
		return &multiCloser{Reader: bzip2.NewReader(f), closers: []func() error{f.Close}}, nil
	default:
		f.Close()
		return nil, loadError(KindUnexpectedParse, path, fmt.Errorf("unsupported compression %s", c))
	}
}
