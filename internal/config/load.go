package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sugawarayuuta/sonnet"
)

// DefaultSettingsFile is read when no settings path is given. A missing
// settings file is not an error.
const DefaultSettingsFile = "./ModelSettings.json"

// LoadFile decodes a TOML or JSON document and flattens it into a Map.
// The format is chosen by extension; anything other than .toml is read as JSON.
func LoadFile(path string) (Map, error) {
	doc := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := sonnet.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	m := Map{}
	flatten(m, "", doc)
	return m, nil
}

// Load resolves the settings, control, configuration and monitor files.
//
// The settings file may name a ConfigFilePath directory; the control file and
// the files it references are resolved relative to it. The control file names
// the Configuration document (required) and the Monitor document (optional,
// merged under the "Monitor." prefix).
func Load(settingsPath, controlFile string) (Map, error) {
	if controlFile == "" {
		return nil, fmt.Errorf("%w: control file", ErrMissing)
	}
	if settingsPath == "" {
		settingsPath = DefaultSettingsFile
	}

	dir := "."
	settings, err := LoadFile(withExt(settingsPath))
	switch {
	case err == nil:
		dir = settings.String("ConfigFilePath", dir)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	control, err := LoadFile(filepath.Join(dir, withExt(controlFile)))
	if err != nil {
		return nil, err
	}
	configFile, err := control.Require("Configuration")
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFile(filepath.Join(dir, withExt(configFile)))
	if err != nil {
		return nil, err
	}

	if monitorFile := control.String("Monitor", ""); monitorFile != "" {
		monitor, err := LoadFile(filepath.Join(dir, withExt(monitorFile)))
		switch {
		case err == nil:
			for k, v := range monitor {
				cfg["Monitor."+k] = v
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}
	return cfg, nil
}

func withExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".toml":
		return path
	}
	return path + ".json"
}

func flatten(dst Map, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(dst, key, child)
		}
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, scalar(item))
		}
		dst[prefix] = strings.Join(parts, ",")
	case []map[string]any:
		for i, child := range val {
			flatten(dst, prefix+"."+strconv.Itoa(i), child)
		}
	default:
		dst[prefix] = scalar(val)
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// Keys returns the sorted key set, mostly for diagnostics.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
