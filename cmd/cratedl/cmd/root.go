package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cratedl/cratedl/internal/cargo"
	"github.com/cratedl/cratedl/internal/download"
	"github.com/cratedl/cratedl/internal/fetch"
	"github.com/cratedl/cratedl/internal/layout"
)

const Version = "0.1.0"

var (
	rootOverwrite   bool
	rootRepo        string
	rootOutput      string
	rootExitOnError bool
	rootErrLog      string
	rootLayout      string
	rootNoProgress  bool
	rootVerbose     bool
)

var rootCmd = &cobra.Command{
	Use:     "cratedl <Cargo.lock>",
	Short:   "Download the crates listed in a Cargo.lock",
	Version: Version,
	Long: `cratedl downloads every crate recorded in a Cargo.lock file from a
registry into a local directory.

By default crates are fetched from crates.io and written as
<name>-<version>.crate files. Both the registry and its URL/file layout
can be pointed at a mirror.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().BoolVarP(&rootOverwrite, "overwrite", "o", false, "overwrite existing crate files")
	rootCmd.Flags().StringVarP(&rootRepo, "repo", "r", fetch.DefaultRegistry, "crates repo link")
	rootCmd.Flags().StringVarP(&rootOutput, "output", "O", ".", "output directory")
	rootCmd.Flags().BoolVarP(&rootExitOnError, "exit-on-error", "e", false, "exit program if download error encountered")
	rootCmd.Flags().StringVarP(&rootErrLog, "err-log", "l", "", "output error log to file. If not specified, stderr used instead")
	rootCmd.Flags().StringVar(&rootLayout, "layout", "", "path to a YAML registry layout config")
	rootCmd.Flags().BoolVar(&rootNoProgress, "no-progress", false, "disable per-crate progress bars")
	rootCmd.Flags().BoolVarP(&rootVerbose, "verbose", "v", false, "verbose output")
}

func runDownload(cmd *cobra.Command, args []string) error {
	pkgs, err := cargo.Load(args[0])
	if err != nil {
		return err
	}

	lay, err := loadLayout(rootLayout)
	if err != nil {
		return err
	}

	var errLog io.Writer = os.Stderr
	if rootErrLog != "" {
		f, err := os.Create(rootErrLog)
		if err != nil {
			return fmt.Errorf("creating error log: %w", err)
		}
		defer f.Close()
		errLog = f
	}

	fetcher := fetch.NewFetcher(rootRepo, lay)
	fetcher.Verbose = rootVerbose

	sum, err := download.Run(fetcher, pkgs, download.Options{
		OutputDir:   rootOutput,
		Overwrite:   rootOverwrite,
		ExitOnError: rootExitOnError,
		ErrLog:      errLog,
		Progress:    !rootNoProgress,
		Verbose:     rootVerbose,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded %d crates\n", sum.Downloaded)
	if sum.Skipped > 0 {
		fmt.Printf("  Skipped: %d\n", sum.Skipped)
	}
	if sum.Failed > 0 {
		color.Red("  Failed: %d", sum.Failed)
	}

	return nil
}

// loadLayout returns the crates.io layout unless a config path is given.
func loadLayout(path string) (layout.Layout, error) {
	if path == "" {
		return layout.Default(), nil
	}
	return layout.Load(path)
}
