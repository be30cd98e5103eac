// Package codec reads graph documents and writes analysis reports.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
)

// Document is the serialized form of a class graph, as produced by an
// external extractor.
type Document struct {
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes     []NodeDoc     `json:"nodes" yaml:"nodes" validate:"dive"`
	Relations []RelationDoc `json:"relations" yaml:"relations" validate:"dive"`
}

// NodeDoc is one class.
type NodeDoc struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Methods uint   `json:"methods" yaml:"methods"`
	// Category pins the class to a category regardless of keyword rules.
	Category string `json:"category,omitempty" yaml:"category,omitempty" validate:"omitempty,category"`
}

// RelationDoc is one directed relation. Weight, when present, overrides the
// weight table.
type RelationDoc struct {
	Source string   `json:"source" yaml:"source" validate:"required"`
	Target string   `json:"target" yaml:"target" validate:"required"`
	Kind   string   `json:"kind" yaml:"kind" validate:"required"`
	Weight *float64 `json:"weight,omitempty" yaml:"weight,omitempty" validate:"omitempty,gt=0"`
}

// Importer parses a graph document.
type Importer interface {
	Parse(r io.Reader) (*Document, error)
	Format() string
}

// Exporter writes a report.
type Exporter interface {
	Export(report *aggregate.Report, w io.Writer) error
	Format() string
	ContentType() string
}

// Codec both imports documents and exports reports.
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for "json" or "yaml" ("yml" accepted).
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unsupported format %q (valid: json, yaml)", format)
}

// ForPath picks a codec from the file extension.
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer format of %s: no extension", path)
	}
	return ForFormat(ext)
}

// ForContentType picks a codec from an HTTP media type; anything that is
// not YAML is treated as JSON.
func ForContentType(ct string) Codec {
	ct = strings.ToLower(ct)
	if strings.Contains(ct, "yaml") {
		return NewYAMLCodec()
	}
	return NewJSONCodec()
}
