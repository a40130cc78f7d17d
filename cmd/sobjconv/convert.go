package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"sobjconv/internal/config"
	"sobjconv/internal/flatten"
	"sobjconv/internal/importer"
	"sobjconv/internal/sobj"
	"sobjconv/internal/texture"
)

type converter struct {
	cfg    config.Config
	logger *log.Logger
}

// convert runs the whole pipeline and returns the encoded document. Nothing
// is returned on failure so the caller never writes a partial document.
func (c *converter) convert(in io.Reader, hint string) ([]byte, error) {
	key, err := c.cfg.Key()
	if err != nil {
		return nil, err
	}
	flags := c.cfg.Flags()
	c.logger.Debug("importing", "type", hint, "flags", flags.String())

	sc, err := importer.Import(in, hint, importer.Options{Flags: flags, BMDKey: key})
	if err != nil {
		return nil, err
	}

	var opts flatten.Options
	if !c.cfg.SkipTextures {
		resolver := &texture.Resolver{Remap: c.cfg.TexMap, Dir: c.cfg.TexDir}
		opts.Textures = texture.NewLoader(resolver, c.cfg.TexFormat, sc.Textures, c.logger)
	}

	res, err := flatten.Flatten(sc, opts)
	if err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	for _, w := range res.Warnings {
		c.logger.Warn("animation operates on unneeded node", "animation", w.Animation, "node", w.Node)
	}

	doc := res.Document
	c.logger.Info("converted",
		"nodes", len(doc.Hierarchy),
		"instances", len(doc.Instances),
		"meshes", len(doc.Meshes),
		"joints", len(doc.Joints),
		"materials", len(doc.Materials),
		"animations", len(doc.Animations),
	)

	var buf bytes.Buffer
	if err := sobj.EncoderFor(c.cfg.Text).Encode(&buf, doc); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
