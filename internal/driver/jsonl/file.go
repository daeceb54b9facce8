package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mesh-intelligence/paradox-mcp/internal/driver"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// header is the first line of a table file.
type header struct {
	Format  string                  `json:"format"`
	Version int                     `json:"version"`
	Fields  []types.FieldDescriptor `json:"fields"`
}

func encodeHeader(fields []types.FieldDescriptor) ([]byte, error) {
	line, err := json.Marshal(header{Format: formatName, Version: formatVersion, Fields: fields})
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

func decodeHeader(line []byte) ([]types.FieldDescriptor, error) {
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, err
	}
	if h.Format != formatName {
		return nil, fmt.Errorf("unknown format %q", h.Format)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("unsupported version %d", h.Version)
	}
	if len(h.Fields) == 0 {
		return nil, fmt.Errorf("header declares no fields")
	}
	return h.Fields, nil
}

func (d *Driver) openRead(op, path string) (afero.File, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, driver.Wrap(op, driver.CodeNoFile, path, err)
		}
		return nil, driver.Wrap(op, driver.CodeIO, path, err)
	}
	return f, nil
}

func (d *Driver) scanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), d.opts.MaxLineBytes)
	return s
}

func (d *Driver) readHeader(path string) ([]types.FieldDescriptor, error) {
	f, err := d.openRead("open", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := d.scanner(f)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, driver.Wrap("open", driver.CodeBadHeader, path, err)
		}
		return nil, driver.Errorf("open", driver.CodeBadHeader, path, "empty file")
	}
	fields, err := decodeHeader(s.Bytes())
	if err != nil {
		return nil, driver.Wrap("open", driver.CodeBadHeader, path, err)
	}
	return fields, nil
}

// decodeRow parses one record line, keeping numbers as json.Number.
func decodeRow(line []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var row []any
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}

// readLines returns every non-empty line of the file, header included.
func (d *Driver) readLines(op, path string) ([][]byte, error) {
	f, err := d.openRead(op, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines [][]byte
	s := d.scanner(f)
	for s.Scan() {
		line := s.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		lines = append(lines, cp)
	}
	if err := s.Err(); err != nil {
		return nil, driver.Wrap(op, driver.CodeIO, path, err)
	}
	return lines, nil
}

// writeLines atomically replaces the file using the temp-file, fsync,
// rename pattern.
func (d *Driver) writeLines(path string, lines [][]byte) error {
	tmp, err := afero.TempFile(d.fs, filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			tmp.Close()
			d.fs.Remove(tmpName)
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			d.fs.Remove(tmpName)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		d.fs.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		d.fs.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		d.fs.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := d.fs.Rename(tmpName, path); err != nil {
		d.fs.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
