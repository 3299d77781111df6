package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Codec encodes the key-value document of a [File] backend.
type Codec interface {
	Name() string
	Marshal(items map[string]string) ([]byte, error)
	Unmarshal(data []byte) (map[string]string, error)
}

// Format names accepted by [CodecFor].
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// CodecFor returns the codec registered under a format name.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML, "yml":
		return yamlCodec{}, nil
	case FormatTOML:
		return tomlCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// CodecForPath picks a codec from the file extension.
func CodecForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}
	return CodecFor(ext)
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return FormatJSON }

func (jsonCodec) Marshal(items map[string]string) ([]byte, error) {
	return json.MarshalIndent(items, "", "  ")
}

func (jsonCodec) Unmarshal(data []byte) (map[string]string, error) {
	items := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return FormatYAML }

func (yamlCodec) Marshal(items map[string]string) ([]byte, error) {
	return yaml.Marshal(items)
}

func (yamlCodec) Unmarshal(data []byte) (map[string]string, error) {
	items := make(map[string]string)
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type tomlCodec struct{}

func (tomlCodec) Name() string { return FormatTOML }

func (tomlCodec) Marshal(items map[string]string) ([]byte, error) {
	return toml.Marshal(items)
}

func (tomlCodec) Unmarshal(data []byte) (map[string]string, error) {
	items := make(map[string]string)
	if err := toml.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
