package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"howett.net/plist"
)

// ErrUnknownFormat is returned for a theme file whose format cannot be told
// from its extension.
var ErrUnknownFormat = errors.New("unknown theme format")

// schemeFile is a color scheme as written on disk. tmTheme files list their
// rules under "settings"; JSON themes may use "tokenColors" instead.
type schemeFile struct {
	Name        string      `json:"name" yaml:"name" plist:"name"`
	UUID        string      `json:"uuid" yaml:"uuid" plist:"uuid"`
	Settings    []StyleRule `json:"settings" yaml:"settings" plist:"settings"`
	TokenColors []StyleRule `json:"tokenColors" yaml:"tokenColors" plist:"-"`
}

// Load reads the color scheme at path. The format follows the extension:
// .tmTheme, .plist or .xml for property lists, .json, and .yaml or .yml.
func Load(path string) (*ColorScheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}
	cs, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("load theme %s: %w", path, err)
	}
	return cs, nil
}

// Decode parses a color scheme. ext is a file extension such as ".json".
func Decode(data []byte, ext string) (*ColorScheme, error) {
	var f schemeFile
	switch strings.ToLower(ext) {
	case ".tmtheme", ".plist", ".xml":
		if _, err := plist.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse property list: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, ErrUnknownFormat
	}
	rules := append(f.Settings, f.TokenColors...)
	return NewColorScheme(f.Name, f.UUID, rules), nil
}
