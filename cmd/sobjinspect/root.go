package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sobjconv/internal/sobj"
)

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "sobjinspect [file]",
		Short:         "Summarise an SOBJ document as tables",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}

			doc, err := decode(data)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report(doc))
			return nil
		},
	}
}

// decode accepts either encoding. Text documents start with a YAML key;
// binary documents start with a length-delimited tag byte.
func decode(data []byte) (*sobj.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &sobj.Document{}, nil
	}
	if looksLikeText(trimmed) {
		doc, err := sobj.UnmarshalText(data)
		if err != nil {
			return nil, fmt.Errorf("decode text document: %w", err)
		}
		return doc, nil
	}
	doc, err := sobj.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode binary document: %w", err)
	}
	return doc, nil
}

func looksLikeText(b []byte) bool {
	c := b[0]
	return c >= 'a' && c <= 'z' || c == '{' || c == '#' || c == '-'
}
