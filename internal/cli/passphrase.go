package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/abtool/abtool/internal/aberrors"
	"github.com/abtool/abtool/internal/config"
)

// resolvePassphrase implements the full discovery order from spec.md
// §6: --passphrase, then --passfile, then a "<input>.passphrase.txt"
// sidecar, then (only if promptIfMissing) an interactive tty prompt.
// This is the only place in abtool that ever touches a terminal for
// input, mirroring the reference implementation's getpass().
func resolvePassphrase(flagValue string, flagSet bool, passfile, inputPath string, promptIfMissing bool) ([]byte, error) {
	pass, _, err := config.ResolvePassphrase(flagValue, flagSet, passfile, inputPath)
	if err != nil {
		return nil, err
	}
	if pass != nil {
		return pass, nil
	}
	if !promptIfMissing {
		return nil, nil
	}
	return promptPassphrase("Android Backup passphrase: ")
}

func promptPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, aberrors.New(aberrors.KindPassphraseMissing, "no passphrase given and stdin is not a terminal")
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, aberrors.Wrap(aberrors.KindPassphraseMissing, err, "unable to read passphrase")
	}
	return b, nil
}
