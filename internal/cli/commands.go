package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abtool/abtool/internal/abcodec"
	"github.com/abtool/abtool/internal/aberrors"
	"github.com/abtool/abtool/internal/config"
	"github.com/abtool/abtool/internal/ops"
)

type commonInputFlags struct {
	passphrase     string
	passphraseSet  bool
	passfile       string
	ignoreChecksum bool
}

// addCommonInputFlags registers the input-side flags every subcommand
// shares. It chains onto any PreRun the caller already installed
// (e.g. to latch its own output-passphrase flag) rather than
// replacing it, since cobra only runs one PreRun per command.
func addCommonInputFlags(cmd *cobra.Command, f *commonInputFlags) {
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "input passphrase (insecure: visible in process listing)")
	cmd.Flags().StringVar(&f.passfile, "passfile", "", "read input passphrase from this file, verbatim")
	cmd.Flags().BoolVar(&f.ignoreChecksum, "ignore-checksum", false, "accept the input even if its key checksum doesn't verify")
	prior := cmd.PreRun
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		f.passphraseSet = cmd.Flags().Changed("passphrase")
		if prior != nil {
			prior(cmd, args)
		}
	}
}

func (f *commonInputFlags) codecConfig() abcodec.Config {
	cfg := abcodec.DefaultConfig()
	cfg.IgnoreChecksum = f.ignoreChecksum
	return cfg
}

func openInputPipeline(inputPath string, f *commonInputFlags, keepCompression bool) (*ops.InputPipeline, io.ReadCloser, error) {
	rc, err := openInput(inputPath)
	if err != nil {
		return nil, nil, err
	}
	passphrase, perr := resolvePassphrase(f.passphrase, f.passphraseSet, f.passfile, inputPath, false)
	if perr != nil {
		rc.Close()
		return nil, nil, perr
	}
	pipe, err := ops.OpenInput(rc, passphrase, keepCompression, f.codecConfig())
	if passphrase == nil && aberrors.Is(err, aberrors.KindPassphraseMissing) {
		// The header declared encryption and no passphrase was found:
		// prompt now and parse the header again from the start.
		if s, ok := rc.(io.Seeker); ok {
			if _, serr := s.Seek(0, io.SeekStart); serr == nil {
				if passphrase, err = promptPassphrase("Android Backup passphrase: "); err == nil {
					pipe, err = ops.OpenInput(rc, passphrase, keepCompression, f.codecConfig())
				}
			}
		}
	}
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	return pipe, rc, nil
}

func newLsCommand() *cobra.Command {
	f := &commonInputFlags{}
	cmd := &cobra.Command{
		Use:     "ls <input.ab>",
		Aliases: []string{"list"},
		Short:   "List the contents of an Android Backup file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, rc, err := openInputPipeline(args[0], f, false)
			if err != nil {
				return err
			}
			defer rc.Close()
			return ops.Ls(pipe, os.Stdout)
		},
	}
	addCommonInputFlags(cmd, f)
	return cmd
}

func newUnwrapCommand() *cobra.Command {
	f := &commonInputFlags{}
	var output string
	var force bool
	cmd := &cobra.Command{
		Use:   "unwrap <input.ab>",
		Short: "Decrypt and decompress an Android Backup file to a plain tar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = defaultOutputName(args[0], ".tar")
			}
			pipe, rc, err := openInputPipeline(args[0], f, false)
			if err != nil {
				return err
			}
			defer rc.Close()
			out, err := createOutput(output, force)
			if err != nil {
				return err
			}
			defer out.Close()
			progress := progressFor("unwrap", output)
			return ops.Unwrap(pipe, out, progress)
		},
	}
	addCommonInputFlags(cmd, f)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output tar path (default: derived from input)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")
	return cmd
}

func newWrapCommand() *cobra.Command {
	var output string
	var force bool
	var version int
	var compress, encrypt bool
	var outPassphrase string
	var outPassphraseSet bool
	cmd := &cobra.Command{
		Use:   "wrap <input.tar>",
		Short: "Wrap a plain tar file into an Android Backup file",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			outPassphraseSet = cmd.Flags().Changed("output-passphrase")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = defaultOutputName(args[0], ".ab")
			}
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			var passphrase []byte
			if encrypt {
				passphrase, err = resolvePassphrase(outPassphrase, outPassphraseSet, "", "", true)
				if err != nil {
					return err
				}
			}

			out, err := createOutput(output, force)
			if err != nil {
				return err
			}
			defer out.Close()

			progress := progressFor("wrap", output)
			return ops.Wrap(in, out, version, compress, encrypt, passphrase, abcodec.DefaultConfig(), progress)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output .ab path (default: derived from input)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")
	cmd.Flags().IntVar(&version, "version", 5, "Android Backup format version to emit")
	cmd.Flags().BoolVar(&compress, "compress", true, "zlib-compress the tar body")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "AES-256 encrypt the tar body")
	cmd.Flags().StringVar(&outPassphrase, "output-passphrase", "", "output passphrase (only with --encrypt)")
	return cmd
}

func newRewrapCommand() *cobra.Command {
	f := &commonInputFlags{}
	var output string
	var force bool
	var keepCompression bool
	var newCompress, newEncrypt bool
	var newVersion int
	var outPassphrase string
	var outPassphraseSet bool

	cmd := &cobra.Command{
		Use:     "rewrap <input.ab>",
		Aliases: []string{"strip"},
		Short:   "Re-encode an Android Backup file under new compression/encryption settings",
		Args:    cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			f.passphraseSet = cmd.Flags().Changed("passphrase")
			outPassphraseSet = cmd.Flags().Changed("output-passphrase")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = defaultOutputName(args[0], ".stripped.ab")
			}
			pipe, rc, err := openInputPipeline(args[0], f, keepCompression)
			if err != nil {
				return err
			}
			defer rc.Close()

			var outPass []byte
			if newEncrypt && !keepCompression {
				outPass, err = resolvePassphrase(outPassphrase, outPassphraseSet, "", "", true)
				if err != nil {
					return err
				}
			}

			out, err := createOutput(output, force)
			if err != nil {
				return err
			}
			defer out.Close()

			opts := ops.RewrapOptions{
				NewVersion:      newVersion,
				NewCompress:     newCompress,
				NewEncrypt:      newEncrypt,
				KeepCompression: keepCompression,
				OutPassphrase:   outPass,
			}
			progress := progressFor("rewrap", output)
			return ops.Rewrap(pipe, out, opts, f.codecConfig(), progress)
		},
	}
	addCommonInputFlags(cmd, f)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output .ab path (default: derived from input)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")
	cmd.Flags().BoolVar(&keepCompression, "keep-compression", false, "decrypt only, leave existing compression untouched")
	cmd.Flags().BoolVar(&newCompress, "compress", false, "zlib-compress the output body (ignored with --keep-compression)")
	cmd.Flags().BoolVar(&newEncrypt, "encrypt", false, "AES-256 encrypt the output body")
	cmd.Flags().IntVar(&newVersion, "version", 0, "Android Backup format version to emit (default: same as input)")
	cmd.Flags().StringVar(&outPassphrase, "output-passphrase", "", "output passphrase (only with --encrypt)")
	return cmd
}

func newMergeCommand() *cobra.Command {
	f := &commonInputFlags{}
	var output string
	var force bool
	var compress, encrypt bool
	var outPassphrase string
	var outPassphraseSet bool

	cmd := &cobra.Command{
		Use:   "merge <input.ab>...",
		Short: "Concatenate several Android Backup files of the same version into one",
		Args:  cobra.MinimumNArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			f.passphraseSet = cmd.Flags().Changed("passphrase")
			outPassphraseSet = cmd.Flags().Changed("output-passphrase")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = defaultOutputName(args[0], ".merged.ab")
			}
			var pipes []*ops.InputPipeline
			var closers []io.ReadCloser
			defer func() {
				for _, c := range closers {
					c.Close()
				}
			}()
			for _, in := range args {
				pipe, rc, err := openInputPipeline(in, f, false)
				if err != nil {
					return err
				}
				pipes = append(pipes, pipe)
				closers = append(closers, rc)
			}

			var outPass []byte
			var err error
			if encrypt {
				outPass, err = resolvePassphrase(outPassphrase, outPassphraseSet, "", "", true)
				if err != nil {
					return err
				}
			}

			out, err := createOutput(output, force)
			if err != nil {
				return err
			}
			defer out.Close()

			progress := progressFor("merge", output)
			return ops.Merge(pipes, out, 0, compress, encrypt, outPass, f.codecConfig(), progress)
		},
	}
	addCommonInputFlags(cmd, f)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output .ab path (default: derived from first input)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")
	cmd.Flags().BoolVar(&compress, "compress", true, "zlib-compress the merged body")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "AES-256 encrypt the merged body")
	cmd.Flags().StringVar(&outPassphrase, "output-passphrase", "", "output passphrase (only with --encrypt)")
	return cmd
}

func newSplitCommand() *cobra.Command {
	f := &commonInputFlags{}
	var prefix string
	var force bool
	var compress, encrypt bool
	var outPassphrase string
	var outPassphraseSet bool

	cmd := &cobra.Command{
		Use:   "split <input.ab>",
		Short: "Split an Android Backup file into one file per app",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			f.passphraseSet = cmd.Flags().Changed("passphrase")
			outPassphraseSet = cmd.Flags().Changed("output-passphrase")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if prefix == "" {
				prefix = defaultSplitPrefix(args[0])
			}
			pipe, rc, err := openInputPipeline(args[0], f, false)
			if err != nil {
				return err
			}
			defer rc.Close()

			var outPass []byte
			if encrypt {
				outPass, err = resolvePassphrase(outPassphrase, outPassphraseSet, "", "", true)
				if err != nil {
					return err
				}
			}

			var created []io.Closer
			sink := ops.SplitCreateFunc(func(appName string, appNum int) (*ops.OutputPipeline, error) {
				path := fmt.Sprintf("%s_%03d_%s.ab", prefix, appNum, appName)
				w, err := createOutput(path, force)
				if err != nil {
					return nil, err
				}
				created = append(created, w)
				return ops.CreateOutput(w, pipe.Header.Version, compress, encrypt, false, outPass, abcodec.DefaultConfig())
			})

			progress := newProgress("split", 0)
			err = ops.Split(pipe, sink, progress)
			for _, c := range created {
				c.Close()
			}
			return err
		},
	}
	addCommonInputFlags(cmd, f)
	cmd.Flags().StringVar(&prefix, "prefix", "", "output filename prefix (default: abarms_split_<input>)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing output files")
	cmd.Flags().BoolVar(&compress, "compress", true, "zlib-compress each per-app body")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "AES-256 encrypt each per-app body")
	cmd.Flags().StringVar(&outPassphrase, "output-passphrase", "", "output passphrase (only with --encrypt)")
	return cmd
}

func defaultOutputName(input, suffix string) string {
	return config.DefaultOutputName(input, suffix)
}

func defaultSplitPrefix(input string) string {
	return config.DefaultSplitPrefix(input)
}
