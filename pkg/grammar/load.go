package grammar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"howett.net/plist"

	"github.com/spicery/tmscope/pkg/pattern"
)

// ErrUnknownFormat is returned for a grammar file whose format cannot be
// told from its extension.
var ErrUnknownFormat = errors.New("unknown grammar format")

// Format is a grammar file encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatYAML
	FormatPlist
)

// FormatOf returns the format implied by a file name's extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".tmlanguage", ".plist", ".xml":
		return FormatPlist
	}
	return FormatUnknown
}

// Loader loads grammar definitions from some storage.
type Loader interface {
	Load(path string) (*Definition, error)
}

// FileLoader reads grammar definitions from the file system.
type FileLoader struct{}

// Load reads and decodes the grammar file at path.
func (FileLoader) Load(path string) (*Definition, error) {
	format := FormatOf(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("load grammar %s: %w", path, ErrUnknownFormat)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar file: %w", err)
	}
	def, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("load grammar %s: %w", path, err)
	}
	return def, nil
}

// Decode parses a grammar definition.
func Decode(data []byte, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatPlist:
		if _, err := plist.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse property list: %w", err)
		}
	default:
		return nil, ErrUnknownFormat
	}
	return &def, nil
}

// Encode writes a definition in the given format.
func Encode(def *Definition, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(def, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(def); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatPlist:
		return plist.MarshalIndent(def, plist.XMLFormat, "\t")
	}
	return nil, ErrUnknownFormat
}

// LoadFile loads and compiles the grammar file at path.
func LoadFile(path string, opts pattern.Options) (*Grammar, error) {
	def, err := FileLoader{}.Load(path)
	if err != nil {
		return nil, err
	}
	g, err := Compile(def, opts)
	if err != nil {
		return nil, fmt.Errorf("compile grammar %s: %w", path, err)
	}
	return g, nil
}
