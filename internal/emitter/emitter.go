// Package emitter holds the file planning and writing shared by the
// language emitters.
package emitter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// PlannedFile describes a file an emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
	// Unchanged is set when the file on disk already has this content.
	Unchanged bool
}

// ErrNotGenerated is returned when a write would replace a file that does
// not carry a generated-code header.
var ErrNotGenerated = errors.New("file exists and was not generated")

var generatedRe = regexp.MustCompile(`^// Code generated .* DO NOT EDIT\.$`)

// IsGenerated reports whether content carries a "Code generated ... DO NOT
// EDIT." line before its first non-comment line.
func IsGenerated(content []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if generatedRe.Match(line) {
			return true
		}
		if len(line) > 0 && !bytes.HasPrefix(line, []byte("//")) {
			return false
		}
	}
	return false
}

// Plan lists files in deterministic order and marks those already present
// in outDir with identical content.
func Plan(outDir string, files map[string][]byte) []PlannedFile {
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		content := files[rel]
		pf := PlannedFile{RelPath: rel, Size: len(content), Mode: 0o644}
		if existing, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel))); err == nil {
			pf.Unchanged = bytes.Equal(existing, content)
		}
		planned = append(planned, pf)
	}
	return planned
}

// WriteFiles writes files below outDir. Existing files are only replaced
// when they were generated or force is set; identical files are left
// untouched. Each file is written to a temp file and renamed into place.
func WriteFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight so a refused overwrite leaves nothing half-written.
	for _, rel := range sortedKeys(files) {
		p := filepath.Join(abs, filepath.FromSlash(rel))
		existing, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if !force && !IsGenerated(existing) {
			return fmt.Errorf("emitter: %s: %w (use --force to overwrite)", p, ErrNotGenerated)
		}
	}
	for _, rel := range sortedKeys(files) {
		content := files[rel]
		p := filepath.Join(abs, filepath.FromSlash(rel))
		if existing, err := os.ReadFile(p); err == nil && bytes.Equal(existing, content) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		if err := writeAtomic(p, content); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

func writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

func sortedKeys(files map[string][]byte) []string {
	out := make([]string, 0, len(files))
	for k := range files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
