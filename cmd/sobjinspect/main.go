// Command sobjinspect prints a summary of an SOBJ document.
//
//	sobjinspect [file]
//
// The document is read from stdin when no file is given. Both the binary
// and the text form are accepted.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sobjinspect: %v\n", err)
		os.Exit(1)
	}
}
