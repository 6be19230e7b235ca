// Package sampler picks a small, size-bounded set of source files from a
// checkout so the LLM prompt stays within limits.
package sampler

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevinmichaelchen/topic-tagger/internal/models"
)

// CodeExtensions lists the file suffixes treated as source code.
var CodeExtensions = []string{
	".py", ".js", ".ts", ".java", ".go", ".rb", ".cpp", ".c",
	".cs", ".php", ".rs", ".swift", ".kt", ".scala", ".sh",
	".pl", ".html", ".css",
}

// SkipDirs are never descended into.
var SkipDirs = []string{"node_modules", "vendor", "__pycache__", ".git"}

type Limits struct {
	MaxFiles      int
	MaxFileBytes  int
	MaxTotalBytes int
}

type Sampler struct {
	limits     Limits
	extensions map[string]bool
	skipDirs   map[string]bool
}

func New(limits Limits) *Sampler {
	s := &Sampler{
		limits:     limits,
		extensions: make(map[string]bool, len(CodeExtensions)),
		skipDirs:   make(map[string]bool, len(SkipDirs)),
	}
	for _, ext := range CodeExtensions {
		s.extensions[ext] = true
	}
	for _, d := range SkipDirs {
		s.skipDirs[d] = true
	}
	return s
}

// Sample walks root in lexical order and collects at most MaxFiles code
// files. Each file contributes at most MaxFileBytes, and the sample as a
// whole never exceeds MaxTotalBytes. Unreadable and binary files are
// skipped.
func (s *Sampler) Sample(repo, root string) (models.Sample, error) {
	sample := models.Sample{Repo: repo}
	remaining := s.limits.MaxTotalBytes

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && s.skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.extensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		limit := min(s.limits.MaxFileBytes, remaining)
		content, ok := readPrefix(path, limit)
		if !ok {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = d.Name()
		}
		sample.Files = append(sample.Files, models.SampleFile{
			Path:    filepath.ToSlash(rel),
			Content: content,
		})
		remaining -= len(content)

		if len(sample.Files) >= s.limits.MaxFiles || remaining <= 0 {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return models.Sample{}, err
	}
	return sample, nil
}

// readPrefix returns up to limit bytes of the file as valid UTF-8. It reports
// false for unreadable files and files containing a NUL byte.
func readPrefix(path string, limit int) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()

	buf, err := io.ReadAll(io.LimitReader(f, int64(limit)))
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false
	}
	if bytes.IndexByte(buf, 0) >= 0 {
		return "", false
	}
	return strings.ToValidUTF8(string(buf), ""), true
}
