package transfer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrFileTooLarge = errors.New("transfer: file exceeds size limit")

// DefaultMaxFileSize caps individual files at 10 MB. IPFS handles larger
// objects fine, but pinning services and capsule use cases rarely want them.
const DefaultMaxFileSize = 10 * 1024 * 1024

// FileInfo describes one scanned file.
type FileInfo struct {
	Path        string
	Name        string
	Size        int64
	ContentType string
}

// ScanOptions filters a directory scan. Zero values mean: default size cap,
// any extension, top level only.
type ScanOptions struct {
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64
	// Extensions whitelists file extensions (with or without the leading
	// dot, case-insensitive). Empty admits everything.
	Extensions []string
	// Recursive descends into subdirectories.
	Recursive bool
}

// Scan walks root and returns the files that pass the filters, in walk
// order. Hidden files (dotfiles) are skipped.
func Scan(root string, opts ScanOptions) ([]FileInfo, error) {
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	allowed := normalizeExtensions(opts.Extensions)

	var files []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if len(allowed) > 0 {
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if _, ok := allowed[ext]; !ok {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxSize {
			return nil
		}

		ct, err := detectContentType(path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Path:        path,
			Name:        d.Name(),
			Size:        info.Size(),
			ContentType: ct,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: scan %s: %w", root, err)
	}
	return files, nil
}

// ReadFile loads one file with the size cap applied.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, path, info.Size())
	}
	return os.ReadFile(path)
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out[e] = struct{}{}
	}
	return out
}

// detectContentType sniffs the first 512 bytes the way net/http does.
func detectContentType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
