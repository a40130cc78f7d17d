package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sobjconv/internal/config"
	"sobjconv/internal/importer"
	"sobjconv/internal/logging"
)

var errUsage = errors.New("expected exactly one argument: the input file type")

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func newRootCommand(s streams, lookup func(string) (string, bool)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sobjconv <file type>",
		Short: "Convert a 3D asset on stdin into an SOBJ document on stdout",
		Long: "sobjconv imports a scene (" + strings.Join(importer.Formats(), ", ") + ") from stdin,\n" +
			"flattens it and writes the SOBJ document to stdout.\n\n" +
			"Environment:\n" +
			"  SOBJ_TEXT           write the human-readable text form\n" +
			"  SOBJ_SKIP_TEXTURES  do not embed textures\n" +
			"  SOBJ_TEX_MAP        texture remap table, src=dst[,src=dst...]\n" +
			"  SOBJ_TEX_DIR        directory for relative texture paths\n" +
			"  SOBJ_TEX_FORMAT     embedded texture format: png or webp\n" +
			"  SOBJ_FLIP_UVS       override UV flipping (true/false)\n" +
			"  SOBJ_BMD_KEY        hex LEA-256 key for version 15 BMD files\n" +
			"  SOBJ_LOG_LEVEL      debug, info, warn or error\n" +
			"  SOBJ_CONFIG         TOML file providing the settings above",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv(lookup)
			if err != nil {
				return err
			}
			logger, err := logging.New(s.err, cfg.LogLevel)
			if err != nil {
				return err
			}
			if !cfg.Text && isTerminal(s.out) {
				logger.Warn("writing binary output to a terminal; set SOBJ_TEXT for the text form")
			}

			c := &converter{cfg: cfg, logger: logger}
			data, err := c.convert(s.in, args[0])
			if err != nil {
				return err
			}
			_, err = s.out.Write(data)
			return err
		},
	}
	cmd.SetIn(s.in)
	cmd.SetOut(s.err)
	cmd.SetErr(s.err)
	return cmd
}

// run executes the command and returns the process exit status.
func run(args []string, s streams, lookup func(string) (string, bool)) int {
	cmd := newRootCommand(s, lookup)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(s.err, "sobjconv: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(s.err, cmd.UsageString())
		}
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
