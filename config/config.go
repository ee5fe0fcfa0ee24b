// Package config exposes a structured, case-insensitive configuration tree
// loaded from YAML or JSON documents.
//
// Keys are addressed with colon-separated paths ("cachekit:memcached:dbconfig")
// and compared case-insensitively. Quoted scalars are re-resolved when bound,
// so "5" binds to an int field and "true" to a bool field.
//
//	cfg, err := config.Load("appsettings.yaml")
//	if err != nil {
//		return err
//	}
//	var opts memcached.Options
//	if err := cfg.Section("cachekit:memcached").Bind(&opts); err != nil {
//		return err
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PathSeparator separates keys in a section path.
const PathSeparator = ":"

var (
	// ErrInvalidDocument is returned when a document is not a mapping at its root.
	ErrInvalidDocument = errors.New("config: document root must be a mapping")
	// ErrBind is returned when a section cannot be decoded into a destination.
	ErrBind = errors.New("config: bind failed")
)

// Config is a node of the configuration tree. A Config for a missing path is
// valid and empty; Exists reports whether the path was present.
type Config struct {
	path string
	node *yaml.Node
}

// Parse parses a YAML (or JSON) document.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if doc.Kind == 0 {
		// empty document
		return &Config{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, ErrInvalidDocument
	}
	normalize(root)
	return &Config{node: root}, nil
}

// Load reads and parses the document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", path, err)
	}
	return Parse(data)
}

// Path returns the full colon-separated path of c. The root has an empty path.
func (c *Config) Path() string { return c.path }

// Exists reports whether c refers to a node present in the document.
func (c *Config) Exists() bool { return c != nil && c.node != nil }

// Section returns the child at path, relative to c. Sequence elements are
// addressed by index ("servers:0:address").
func (c *Config) Section(path string) *Config {
	full := joinPath(c.path, path)
	if !c.Exists() {
		return &Config{path: full}
	}
	node := c.node
	for _, part := range strings.Split(path, PathSeparator) {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		node = child(node, part)
		if node == nil {
			return &Config{path: full}
		}
	}
	return &Config{path: full, node: node}
}

// Value returns the scalar at path, relative to c.
func (c *Config) Value(path string) (string, bool) {
	s := c.Section(path)
	if !s.Exists() || s.node.Kind != yaml.ScalarNode {
		return "", false
	}
	return s.node.Value, true
}

// Bind decodes c onto dst, which must be a non-nil pointer. Only keys present
// in the section are written, so Bind overlays values already in dst.
// Binding a missing section is a no-op.
func (c *Config) Bind(dst any) error {
	if !c.Exists() {
		return nil
	}
	if err := c.node.Decode(dst); err != nil {
		return fmt.Errorf("%w: section %q: %v", ErrBind, c.path, err)
	}
	return nil
}

func child(node *yaml.Node, key string) *yaml.Node {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				return node.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(key)
		if err == nil && idx >= 0 && idx < len(node.Content) {
			return node.Content[idx]
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			return child(node.Alias, key)
		}
	}
	return nil
}

// normalize lowercases mapping keys and strips quoting from scalar values so
// they resolve to their natural type when decoded.
func normalize(node *yaml.Node) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			node.Content[i].Value = strings.ToLower(node.Content[i].Value)
			normalize(node.Content[i+1])
		}
	case yaml.SequenceNode, yaml.DocumentNode:
		for _, n := range node.Content {
			normalize(n)
		}
	case yaml.ScalarNode:
		if node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 && node.Value != "" {
			node.Style &^= yaml.DoubleQuotedStyle | yaml.SingleQuotedStyle
			node.Tag = ""
		}
	}
}

func joinPath(base, rel string) string {
	rel = strings.Trim(rel, PathSeparator)
	switch {
	case base == "":
		return rel
	case rel == "":
		return base
	default:
		return base + PathSeparator + rel
	}
}
