// Command sobjconv reads a 3D asset on stdin and writes the flattened SOBJ
// document to stdout.
//
//	sobjconv <file type> < model.gltf > model.sobj
//
// Settings come from SOBJ_* environment variables and an optional TOML
// file named by SOBJ_CONFIG.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}, os.LookupEnv))
}
