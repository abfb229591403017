// Copyright 2026 The Logship Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a policy file encoding.
type Format int

const (
	TOML Format = iota
	YAML
	JSONC
)

func (f Format) String() string {
	switch f {
	case TOML:
		return "toml"
	case YAML:
		return "yaml"
	case JSONC:
		return "jsonc"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".json", ".jsonc":
		return JSONC, nil
	default:
		return 0, fmt.Errorf("%s: unrecognized policy file extension (want .toml, .yaml, .yml, .json or .jsonc)", path)
	}
}

// document is the on-disk key schema shared by every format.
type document struct {
	LogFileName    string             `toml:"log_file_name" yaml:"log_file_name" json:"log_file_name"`
	MinLogLevel    string             `toml:"min_log_level" yaml:"min_log_level" json:"min_log_level"`
	LogRotation    string             `toml:"log_rotation" yaml:"log_rotation" json:"log_rotation"`
	LogCompression string             `toml:"log_compression" yaml:"log_compression" json:"log_compression"`
	Remote         *remoteSection     `toml:"remote" yaml:"remote" json:"remote"`
	Aggregator     *aggregatorSection `toml:"aggregator" yaml:"aggregator" json:"aggregator"`
}

type remoteSection struct {
	Enabled              *bool  `toml:"enabled" yaml:"enabled" json:"enabled"`
	Host                 string `toml:"host" yaml:"host" json:"host"`
	Port                 int    `toml:"port" yaml:"port" json:"port"`
	Subject              string `toml:"subject" yaml:"subject" json:"subject"`
	ConnectTimeout       string `toml:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout"`
	ReconnectWait        string `toml:"reconnect_wait" yaml:"reconnect_wait" json:"reconnect_wait"`
	ReconnectBufferBytes int    `toml:"reconnect_buffer_bytes" yaml:"reconnect_buffer_bytes" json:"reconnect_buffer_bytes"`
}

type aggregatorSection struct {
	Host            string `toml:"host" yaml:"host" json:"host"`
	Port            int    `toml:"port" yaml:"port" json:"port"`
	Subject         string `toml:"subject" yaml:"subject" json:"subject"`
	LogFileName     string `toml:"log_file_name" yaml:"log_file_name" json:"log_file_name"`
	LogRotation     string `toml:"log_rotation" yaml:"log_rotation" json:"log_rotation"`
	LogCompression  string `toml:"log_compression" yaml:"log_compression" json:"log_compression"`
	PendingMessages int    `toml:"pending_messages" yaml:"pending_messages" json:"pending_messages"`
	PendingBytes    int    `toml:"pending_bytes" yaml:"pending_bytes" json:"pending_bytes"`
	BindTimeout     string `toml:"bind_timeout" yaml:"bind_timeout" json:"bind_timeout"`
	MetricsListen   string `toml:"metrics_listen" yaml:"metrics_listen" json:"metrics_listen"`
}

func decode(data []byte, format Format) (*document, error) {
	var parsed document
	switch format {
	case TOML:
		metadata, err := toml.Decode(string(data), &parsed)
		if err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
		if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	case YAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&parsed); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	case JSONC:
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&parsed); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported policy format %v", format)
	}
	return &parsed, nil
}
