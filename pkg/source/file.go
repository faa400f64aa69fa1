package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	cerrors "github.com/matzehuels/clustermap/pkg/errors"
	"github.com/matzehuels/clustermap/pkg/model"
)

// FileSource reads a dataset export. Files ending in .yaml or .yml are
// YAML; everything else is JSON.
type FileSource struct {
	Path string
}

// NewFileSource validates path and returns a source for it.
func NewFileSource(path string) (*FileSource, error) {
	if err := cerrors.ValidatePath(path); err != nil {
		return nil, err
	}
	return &FileSource{Path: filepath.Clean(path)}, nil
}

// Load reads and decodes the file.
func (s *FileSource) Load(ctx context.Context) (*model.Dataset, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cerrors.New(cerrors.ErrCodeFileNotFound, "dataset file not found: %s", s.Path)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidPath, err, "read %s", s.Path)
	}
	return Decode(data, IsYAML(s.Path))
}

// IsYAML reports whether path has a YAML extension.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Decode parses a dataset document, validates and prepares it.
func Decode(data []byte, asYAML bool) (*model.Dataset, error) {
	var ds model.Dataset
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &ds)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&ds)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidDataset, err, "decode dataset")
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	ds.Prepare()
	return &ds, nil
}
