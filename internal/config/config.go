// Package config loads converter settings from an optional TOML file and
// SOBJ_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"sobjconv/internal/postprocess"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvConfig       = "SOBJ_CONFIG"
	EnvText         = "SOBJ_TEXT"
	EnvTexMap       = "SOBJ_TEX_MAP"
	EnvSkipTextures = "SOBJ_SKIP_TEXTURES"
	EnvTexFormat    = "SOBJ_TEX_FORMAT"
	EnvTexDir       = "SOBJ_TEX_DIR"
	EnvFlipUVs      = "SOBJ_FLIP_UVS"
	EnvLogLevel     = "SOBJ_LOG_LEVEL"
	EnvBMDKey       = "SOBJ_BMD_KEY"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds all converter settings.
type Config struct {
	// Output
	Text bool `toml:"text"`

	// Textures
	TexMap       map[string]string `toml:"tex_map"`
	SkipTextures bool              `toml:"skip_textures"`
	TexFormat    string            `toml:"tex_format"`
	TexDir       string            `toml:"tex_dir"`

	// Import
	FlipUVs *bool  `toml:"flip_uvs"`
	BMDKey  string `toml:"bmd_key"`

	LogLevel string `toml:"log_level"`
}

// Load reads a TOML config file. Fields not set in the file keep their
// zero values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads the file named by SOBJ_CONFIG, if any, then applies the
// remaining environment overrides and fills defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	if path, ok := lookup(EnvConfig); ok && path != "" {
		loaded, err := Load(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. A switch variable counts
// as set when it is present and non-empty.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(name string) bool {
		v, ok := lookup(name)
		return ok && v != ""
	}

	if set(EnvText) {
		c.Text = true
	}
	if set(EnvSkipTextures) {
		c.SkipTextures = true
	}
	if v, ok := lookup(EnvTexMap); ok && v != "" {
		m, err := ParseTexMap(v)
		if err != nil {
			return err
		}
		if c.TexMap == nil {
			c.TexMap = make(map[string]string, len(m))
		}
		for k, dst := range m {
			c.TexMap[k] = dst
		}
	}
	if v, ok := lookup(EnvTexFormat); ok && v != "" {
		c.TexFormat = strings.ToLower(v)
	}
	if v, ok := lookup(EnvTexDir); ok && v != "" {
		c.TexDir = v
	}
	if v, ok := lookup(EnvFlipUVs); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvFlipUVs, v, err)
		}
		c.FlipUVs = &b
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvBMDKey); ok && v != "" {
		c.BMDKey = v
	}
	return nil
}

// ParseTexMap parses "src=dst,src2=dst2". Whitespace around entries and
// around either side of '=' is trimmed; empty entries are skipped.
func ParseTexMap(s string) (map[string]string, error) {
	m := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		src, dst, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: tex map entry %q has no '='", ErrInvalid, entry)
		}
		src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
		if src == "" {
			return nil, fmt.Errorf("%w: tex map entry %q has an empty source", ErrInvalid, entry)
		}
		m[src] = dst
	}
	return m, nil
}

// Resolve fills in any empty fields with defaults.
func (c *Config) Resolve() {
	if c.TexFormat == "" {
		c.TexFormat = "png"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.FlipUVs == nil {
		flip := !c.SkipTextures
		c.FlipUVs = &flip
	}
}

// Validate checks enumerated fields and the BMD key.
func (c *Config) Validate() error {
	switch c.TexFormat {
	case "png", "webp":
	default:
		return fmt.Errorf("%w: texture format %q (want png or webp)", ErrInvalid, c.TexFormat)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	if c.BMDKey != "" {
		if _, err := c.Key(); err != nil {
			return err
		}
	}
	return nil
}

// Key decodes BMDKey. It returns nil when no key is configured.
func (c *Config) Key() ([]byte, error) {
	if c.BMDKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.BMDKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%w: BMD key must be 64 hex characters", ErrInvalid)
	}
	return key, nil
}

// Flags returns the import post-processing steps for this configuration.
func (c *Config) Flags() postprocess.Flags {
	flags := postprocess.DefaultFlags
	if c.FlipUVs != nil && *c.FlipUVs {
		flags |= postprocess.FlipUVs
	}
	return flags
}
