// Package cookbook loads Chef cookbooks from a directory.
//
// A directory is a cookbook when it carries either a metadata.json or a metadata.rb.
// metadata.json wins when both exist.
package cookbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

const (
	MetadataJSON = "metadata.json"
	MetadataRB   = "metadata.rb"

	// DefaultVersion is the version Chef assigns to a cookbook whose metadata omits it.
	DefaultVersion = "0.0.0"
)

// ReadFileFunc reads the file at the given path.
// It must return an error that satisfies errors.Is(err, fs.ErrNotExist) when the file is missing,
// so that the loader can fall back to the next metadata format.
type ReadFileFunc func(path string) ([]byte, error)

// Cookbook is a directory with a name and a version.
//
// Two cookbooks are the same cookbook iff their name, version and path are equal.
// Path is always absolute and cleaned, so that two different relative paths
// to the same directory produce equal values.
type Cookbook struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Path    string `json:"path" yaml:"path"`
}

// New loads the cookbook at path from the local filesystem.
// It returns a *NotACookbookError when path carries no metadata.
func New(path string) (*Cookbook, error) {
	return NewWithReader(path, os.ReadFile)
}

// NewWithReader is like New but reads metadata files through read.
// This is how a cookbook is loaded as it existed at a past revision.
func NewWithReader(path string, read ReadFileFunc) (*Cookbook, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve cookbook path %q: %w", path, err)
	}

	m, err := loadMetadata(abs, read)
	if err != nil {
		return nil, err
	}

	return &Cookbook{
		Name:    m.Name,
		Version: m.Version,
		Path:    abs,
	}, nil
}

// Load is like New but returns nil without an error when path is not a cookbook.
// Use it when enumerating candidate directories, where a directory without metadata
// is simply skipped.
func Load(path string) (*Cookbook, error) {
	return LoadWithReader(path, os.ReadFile)
}

func LoadWithReader(path string, read ReadFileFunc) (*Cookbook, error) {
	c, err := NewWithReader(path, read)
	if IsNotACookbook(err) {
		return nil, nil
	}

	return c, err
}

// Equal reports whether c and other denote the same cookbook.
func (c Cookbook) Equal(other Cookbook) bool {
	return c.Name == other.Name &&
		c.Version == other.Version &&
		c.Path == other.Path
}

func (c Cookbook) String() string {
	return fmt.Sprintf("%s@%s (%s)", c.Name, c.Version, c.Path)
}

func loadMetadata(dir string, read ReadFileFunc) (*Metadata, error) {
	jsonPath := filepath.Join(dir, MetadataJSON)
	data, err := read(jsonPath)
	if err == nil {
		m, err := ParseMetadataJSON(data)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s: %w", jsonPath, err)
		}
		return m, nil
	} else if !isNotExist(err) {
		return nil, fmt.Errorf("unable to read %s: %w", jsonPath, err)
	}

	rbPath := filepath.Join(dir, MetadataRB)
	data, err = read(rbPath)
	if err == nil {
		m, err := ParseMetadataRB(data)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s: %w", rbPath, err)
		}
		return m, nil
	} else if !isNotExist(err) {
		return nil, fmt.Errorf("unable to read %s: %w", rbPath, err)
	}

	return nil, &NotACookbookError{Path: dir}
}

// isNotExist also treats ENOTDIR as missing, which is what reading
// <file>/metadata.json yields when the candidate is a regular file.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
