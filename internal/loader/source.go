package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var sourceLanguages = map[string]string{
	".py":   "python",
	".go":   "go",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".rb":   "ruby",
	".rs":   "rust",
	".c":    "c",
	".cpp":  "cpp",
	".sh":   "bash",
	".sql":  "sql",
}

// SourceFile is a code file documented instead of profiled.
type SourceFile struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Lines    int    `json:"lines"`
	NonBlank int    `json:"non_blank"`
	Content  string `json:"content"`
}

// IsSource reports whether filename is a recognized source code file.
func IsSource(filename string) bool {
	_, ok := sourceLanguages[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// LoadSource reads a source file from disk.
func LoadSource(path string) (*SourceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return ReadSource(filepath.Base(path), f)
}

// ReadSource reads source text from r; name selects the language.
func ReadSource(name string, r io.Reader) (*SourceFile, error) {
	if !IsSource(name) {
		return nil, unsupported(name)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	src := &SourceFile{
		Name:     name,
		Language: sourceLanguages[strings.ToLower(filepath.Ext(name))],
		Content:  string(b),
	}
	sc := bufio.NewScanner(strings.NewReader(src.Content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		src.Lines++
		if strings.TrimSpace(sc.Text()) != "" {
			src.NonBlank++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	return src, nil
}
