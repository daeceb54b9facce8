// Package catalog discovers the tables stored in the configured location and
// turns caller-supplied table names into handles whose paths are guaranteed
// to stay inside that location.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// DefaultBatchSize is the number of directory entries read per batch while
// listing.
const DefaultBatchSize = 256

// Catalog lists and resolves tables in one directory. It keeps no state
// between calls.
type Catalog struct {
	fs    afero.Fs
	root  string
	ext   string
	batch int
}

// New returns a catalog of the files with extension ext (leading dot, matched
// case-insensitively) directly inside location on fsys.
func New(fsys afero.Fs, location, ext string) *Catalog {
	return &Catalog{
		fs:    fsys,
		root:  filepath.Clean(location),
		ext:   ext,
		batch: DefaultBatchSize,
	}
}

// Location returns the cleaned root directory.
func (c *Catalog) Location() string {
	return c.root
}

// Extension returns the table file extension.
func (c *Catalog) Extension() string {
	return c.ext
}

// List yields a handle for every table file in the location. Directory
// entries are read in batches as the caller iterates; each range over the
// sequence rescans the directory. Order follows the filesystem.
func (c *Catalog) List(ctx context.Context) iter.Seq2[types.TableHandle, error] {
	return func(yield func(types.TableHandle, error) bool) {
		dir, err := c.fs.Open(c.root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = fmt.Errorf("%w: location %s does not exist", types.ErrNotFound, c.root)
			}
			yield(types.TableHandle{}, err)
			return
		}
		defer dir.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield(types.TableHandle{}, err)
				return
			}
			infos, err := dir.Readdir(c.batch)
			for _, info := range infos {
				if info.IsDir() {
					continue
				}
				name, ok := c.tableName(info.Name())
				if !ok {
					continue
				}
				h := types.TableHandle{Name: name, Path: filepath.Join(c.root, info.Name())}
				if !yield(h, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) || (err == nil && len(infos) == 0) {
				return
			}
			if err != nil {
				yield(types.TableHandle{}, fmt.Errorf("read location: %w", err))
				return
			}
		}
	}
}

// tableName returns the canonical table name of a directory entry, or false
// when the entry is not a table file.
func (c *Catalog) tableName(file string) (string, bool) {
	ext := filepath.Ext(file)
	if !strings.EqualFold(ext, c.ext) {
		return "", false
	}
	name := strings.TrimSuffix(file, ext)
	if name == "" || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

// Canonical strips the table extension, if present, from a validated name.
func (c *Catalog) Canonical(name string) string {
	if n, ok := c.tableName(name); ok {
		return n
	}
	return name
}

// ValidateName rejects names that could address anything other than a file
// directly inside the location. It performs no filesystem access.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name must not be empty", types.ErrInvalidName)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", types.ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", types.ErrInvalidName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q references a parent directory", types.ErrInvalidName, name)
	case filepath.IsAbs(name) || filepath.VolumeName(name) != "":
		return fmt.Errorf("%w: %q is an absolute path", types.ErrInvalidName, name)
	}
	return nil
}

// ResolveNew validates name and returns the handle a new table of that name
// would have. The file may or may not exist.
func (c *Catalog) ResolveNew(name string) (types.TableHandle, error) {
	if err := ValidateName(name); err != nil {
		return types.TableHandle{}, err
	}
	canonical := c.Canonical(name)
	if canonical == "" || canonical == "." || canonical == ".." {
		return types.TableHandle{}, fmt.Errorf("%w: %q has no table name", types.ErrInvalidName, name)
	}
	path := filepath.Join(c.root, canonical+c.ext)
	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel != filepath.Base(path) {
		return types.TableHandle{}, fmt.Errorf("%w: %q escapes the location", types.ErrInvalidName, name)
	}
	return types.TableHandle{Name: canonical, Path: path}, nil
}

// Resolve returns the handle of an existing table. A name matches its file
// with or without the extension, and the extension of the file on disk may
// differ in case.
func (c *Catalog) Resolve(ctx context.Context, name string) (types.TableHandle, error) {
	h, err := c.ResolveNew(name)
	if err != nil {
		return types.TableHandle{}, err
	}
	info, err := c.fs.Stat(h.Path)
	switch {
	case err == nil && !info.IsDir():
		return h, nil
	case err == nil || errors.Is(err, fs.ErrNotExist):
	default:
		return types.TableHandle{}, fmt.Errorf("stat %s: %w", h.Name, err)
	}

	for candidate, err := range c.List(ctx) {
		if err != nil {
			return types.TableHandle{}, err
		}
		if candidate.Name == h.Name {
			return candidate, nil
		}
	}
	return types.TableHandle{}, fmt.Errorf("%w: %s", types.ErrNotFound, h.Name)
}
