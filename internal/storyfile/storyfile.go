// Package storyfile reads user stories and story batches from JSON, YAML or
// TOML files. The format is chosen by file extension.
package storyfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
)

const maxFileSize = 1024 * 1024 // 1MB

// ErrUnsupportedFormat is returned for extensions other than .json, .yaml,
// .yml and .toml.
var ErrUnsupportedFormat = errors.New("unsupported story file format")

// Format is a story file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// batchFile is the document shape of a batch file. JSON and YAML batches may
// also be a bare list of entries.
type batchFile struct {
	Stories []pipeline.BatchEntry `json:"stories"`
}

// LoadStory reads a single story and validates it.
func LoadStory(path string) (domain.UserStory, error) {
	var story domain.UserStory

	format, content, err := read(path)
	if err != nil {
		return story, err
	}
	if err := decode(format, content, &story); err != nil {
		return story, fmt.Errorf("failed to decode story file %s: %w", path, err)
	}
	if err := story.Validate(); err != nil {
		return story, fmt.Errorf("story file %s: %w", path, err)
	}
	return story, nil
}

// LoadBatch reads a batch of stories. Only a document that cannot be parsed
// fails the load. An entry with missing keys, wrong types or unknown keys is
// returned with its Err set and is reported in place when the batch is
// processed.
func LoadBatch(path string) ([]pipeline.BatchEntry, error) {
	format, content, err := read(path)
	if err != nil {
		return nil, err
	}

	var entries []pipeline.BatchEntry
	doc, err := toJSON(format, content)
	if err == nil {
		if bytes.HasPrefix(bytes.TrimSpace(doc), []byte("[")) {
			err = json.Unmarshal(doc, &entries)
		} else {
			var f batchFile
			err = decodeJSON(doc, &f)
			entries = f.Stories
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode batch file %s: %w", path, err)
	}
	if entries == nil {
		entries = []pipeline.BatchEntry{}
	}
	return entries, nil
}

// Decode reads a single story from r in the given format without
// validating it.
func Decode(r io.Reader, format Format, story *domain.UserStory) error {
	content, err := io.ReadAll(io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return err
	}
	if len(content) > maxFileSize {
		return fmt.Errorf("story input too large (max %d bytes)", maxFileSize)
	}
	return decode(format, content, story)
}

func read(path string) (Format, []byte, error) {
	format, err := FormatOf(path)
	if err != nil {
		return "", nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open story file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat story file: %w", err)
	}
	if info.Size() > maxFileSize {
		return "", nil, fmt.Errorf("story file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read story file: %w", err)
	}
	return format, content, nil
}

// decode reads content through its JSON form, so every format shares the
// same required-key and unknown-key rules.
func decode(format Format, content []byte, v any) error {
	doc, err := toJSON(format, content)
	if err != nil {
		return err
	}
	return decodeJSON(doc, v)
}

func decodeJSON(doc []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON document")
	}
	return nil
}

// toJSON converts a YAML or TOML document to JSON. JSON passes through. An
// empty YAML document becomes null.
func toJSON(format Format, content []byte) ([]byte, error) {
	var doc any
	switch format {
	case FormatJSON:
		return content, nil
	case FormatYAML:
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, err
		}
	case FormatTOML:
		var table map[string]any
		if _, err := toml.Decode(string(content), &table); err != nil {
			return nil, err
		}
		doc = table
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return json.Marshal(stringKeys(doc))
}

// stringKeys rewrites YAML maps with non-string keys so they marshal. Such
// keys then fail decoding as unknown fields of the entry that holds them.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stringKeys(val)
		}
		return out
	default:
		return v
	}
}
