package report

import (
	"encoding/json"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Formatter serializes an artifact for writing to disk.
type Formatter func(v interface{}) ([]byte, error)

func JSONFormatter(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	return data, errors.WithStack(err)
}

func YamlFormatter(v interface{}) ([]byte, error) {
	data, err := yaml.Marshal(v)
	return data, errors.WithStack(err)
}

// FormatterByName maps a --format flag value to a formatter and file
// extension. Unknown names fall back to JSON.
func FormatterByName(name string) (Formatter, string) {
	switch name {
	case "yaml", "yml":
		return YamlFormatter, "yaml"
	default:
		return JSONFormatter, "json"
	}
}
