// Command abtool inspects, decrypts, and re-encrypts Android Backup
// (.ab) files: ls, rewrap, split, merge, unwrap, and wrap.
package main

import (
	"fmt"
	"os"

	"github.com/abtool/abtool/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "abtool:", err)
		os.Exit(1)
	}
}
