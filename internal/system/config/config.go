// Released under an MIT license. See LICENSE.

// Package config reads policy files. A policy file is a versioned YAML or
// TOML document holding an attribute guard section and an import section.
// Omitted sections and fields keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/michaelmacinnis/enclave/internal/engine/gate"
	"github.com/michaelmacinnis/enclave/internal/engine/guard"
)

// Format is a policy file encoding.
type Format int

// Policy file encodings.
const (
	YAML Format = iota
	TOML
)

// ErrFormat is returned for files with an unrecognized extension.
var ErrFormat = errors.New("unrecognized policy file format")

// File is the document stored in a policy file.
type File struct {
	Version int          `toml:"version" yaml:"version"`
	Guard   *GuardFields `toml:"guard"   yaml:"guard"`
	Imports *gate.Spec   `toml:"imports" yaml:"imports"`
}

// GuardFields holds the guard section. Nil fields keep their defaults.
type GuardFields struct {
	Blocked          []string          `toml:"blocked"            yaml:"blocked"`
	Aliases          map[string]string `toml:"aliases"            yaml:"aliases"`
	ForeignOnly      []string          `toml:"foreign_only"       yaml:"foreign_only"`
	HostReceiverOnly []string          `toml:"host_receiver_only" yaml:"host_receiver_only"`
}

// Policy is a parsed policy file.
type Policy struct {
	Guard   *guard.Policy
	Imports *gate.Policy
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}

	return 0, fmt.Errorf("%s: %w", path, ErrFormat)
}

// Load reads the policy file at path.
func Load(path string) (*Policy, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	p, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// Parse decodes and validates a policy document.
func Parse(data []byte, f Format) (*Policy, error) {
	var file File

	switch f {
	case YAML:
		d := yaml.NewDecoder(bytes.NewReader(data))
		d.KnownFields(true)

		if err := d.Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing policy file: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(data), &file)
		if err != nil {
			return nil, fmt.Errorf("parsing policy file: %w", err)
		}

		if u := md.Undecoded(); len(u) > 0 {
			return nil, fmt.Errorf("parsing policy file: unknown key %q", u[0].String())
		}
	default:
		return nil, ErrFormat
	}

	return file.Policy()
}

// Policy builds the policies described by f.
func (f *File) Policy() (*Policy, error) {
	s := guard.DefaultSpec()
	s.Version = f.Version

	if g := f.Guard; g != nil {
		if g.Blocked != nil {
			s.Blocked = g.Blocked
		}

		if g.Aliases != nil {
			s.Aliases = g.Aliases
		}

		if g.ForeignOnly != nil {
			s.ForeignOnly = g.ForeignOnly
		}

		if g.HostReceiverOnly != nil {
			s.HostReceiverOnly = g.HostReceiverOnly
		}
	}

	gp, err := guard.New(s)
	if err != nil {
		return nil, err
	}

	ip := gate.Default()

	if f.Imports != nil {
		ip, err = gate.NewPolicy(*f.Imports)
		if err != nil {
			return nil, err
		}
	}

	return &Policy{Guard: gp, Imports: ip}, nil
}
