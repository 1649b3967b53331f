package log

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// TrimFile keeps the newest half of maxLines in the file at path. When
// the file holds maxLines lines or fewer it is left untouched. The tail
// is written to a temp file in the same directory and renamed over the
// original so a crash can never leave a truncated file behind.
func TrimFile(path string, maxLines int) error {
	if maxLines <= 0 {
		return fmt.Errorf("trim: maxLines must be positive, got %d", maxLines)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("trim: opening %s: %w", path, err)
	}

	total := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		total++
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return fmt.Errorf("trim: counting lines in %s: %w", path, err)
	}
	f.Close()

	if total <= maxLines {
		return nil
	}

	keep := maxLines / 2
	skip := total - keep

	f, err = os.Open(path)
	if err != nil {
		return fmt.Errorf("trim: reopening %s: %w", path, err)
	}
	defer f.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".trim-*")
	if err != nil {
		return fmt.Errorf("trim: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	scanner = bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line <= skip {
			continue
		}
		if _, err := w.Write(scanner.Bytes()); err != nil {
			tmp.Close()
			return fmt.Errorf("trim: writing tail: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return fmt.Errorf("trim: writing tail: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		tmp.Close()
		return fmt.Errorf("trim: reading %s: %w", path, err)
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("trim: flushing tail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("trim: closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("trim: replacing %s: %w", path, err)
	}
	return nil
}
