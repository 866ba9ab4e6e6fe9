package persistence

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// MetadataVersion is the current metadata.yaml format version.
const MetadataVersion = 1

// Default artifact names inside an index directory.
const (
	GraphFile    = "graph.hnsw"
	MappingsFile = "mappings.bin"
	MetadataFile = "metadata.yaml"
)

// Artifact describes one binary artifact as stored.
type Artifact struct {
	Name     string `yaml:"name"`
	Version  uint16 `yaml:"version"`
	Size     int64  `yaml:"size"`
	Checksum uint32 `yaml:"crc32c"`
}

// Metadata is the content of metadata.yaml. It is written last and ties the
// two binary artifacts together: load refuses artifacts whose size or
// checksum differ from what is recorded here.
type Metadata struct {
	FormatVersion  int         `yaml:"format_version"`
	IndexID        string      `yaml:"index_id"`
	Dimension      int         `yaml:"dimension"`
	Metric         string      `yaml:"metric"`
	VectorStorage  bool        `yaml:"vector_storage"`
	Backend        string      `yaml:"backend,omitempty"`
	M              int         `yaml:"m"`
	EFConstruction int         `yaml:"ef_construction"`
	EFSearch       int         `yaml:"ef_search"`
	Alpha          float32     `yaml:"alpha"`
	Count          int         `yaml:"count"`
	Compression    Compression `yaml:"compression"`
	Graph          Artifact    `yaml:"graph"`
	Mappings       Artifact    `yaml:"mappings"`
	SavedAt        time.Time   `yaml:"saved_at"`
}

// Validate checks the fields a loader depends on.
func (m *Metadata) Validate() error {
	if m.FormatVersion != MetadataVersion {
		return fmt.Errorf("%w: metadata format %d, want %d", ErrInvalidVersion, m.FormatVersion, MetadataVersion)
	}
	if m.Dimension <= 0 {
		return Corruptf("metadata dimension %d", m.Dimension)
	}
	if m.Count < 0 {
		return Corruptf("metadata count %d", m.Count)
	}
	if m.Graph.Name == "" || m.Mappings.Name == "" {
		return Corruptf("metadata is missing artifact names")
	}
	if m.Graph.Version != GraphVersion {
		return fmt.Errorf("%w: graph format %d, want %d", ErrInvalidVersion, m.Graph.Version, GraphVersion)
	}
	if m.Mappings.Version != MappingsVersion {
		return fmt.Errorf("%w: mappings format %d, want %d", ErrInvalidVersion, m.Mappings.Version, MappingsVersion)
	}
	return nil
}

// WriteMetadata encodes m as YAML.
func WriteMetadata(w io.Writer, m *Metadata) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return enc.Close()
}

// ReadMetadata decodes and validates metadata.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	var m Metadata
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", ErrCorrupted, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
