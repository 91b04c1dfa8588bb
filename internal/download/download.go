// Package download implements the sequential crate download loop.
package download

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/cratedl/cratedl/internal/cargo"
	"github.com/cratedl/cratedl/internal/fetch"
)

// Options controls the behavior of a download run.
type Options struct {
	// OutputDir is the directory crate archives are written into.
	OutputDir string
	// Overwrite re-downloads crates whose target file already exists.
	Overwrite bool
	// ExitOnError aborts the run on the first failed record.
	ExitOnError bool
	// ErrLog receives one line per failed record. Defaults to stderr.
	ErrLog io.Writer
	// Progress shows a per-crate progress bar while streaming.
	Progress bool
	// Verbose enables verbose output.
	Verbose bool
}

// Summary counts the outcome of each record in a run.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Run processes packages in order: skip if the target exists and Overwrite
// is off, otherwise fetch and write. Each record is independent; a failure
// either aborts the run (ExitOnError) or is logged and the loop continues.
func Run(fetcher *fetch.Fetcher, packages []cargo.Package, opts Options) (Summary, error) {
	var sum Summary

	errLog := opts.ErrLog
	if errLog == nil {
		errLog = os.Stderr
	}

	for _, pkg := range packages {
		target := filepath.Join(opts.OutputDir, filepath.FromSlash(fetcher.Layout.File(pkg.Name, pkg.Version)))

		if !opts.Overwrite {
			if _, err := os.Stat(target); err == nil {
				fmt.Fprintf(os.Stderr, "Skipping %s@%s: %s exists\n", pkg.Name, pkg.Version, target)
				sum.Skipped++
				continue
			}
		}

		if err := fetchOne(fetcher, pkg, target, opts.Progress); err != nil {
			sum.Failed++
			fmt.Fprintf(errLog, "Error downloading crate %q version %s: %v\n", pkg.Name, pkg.Version, err)
			if opts.ExitOnError {
				return sum, fmt.Errorf("downloading %s@%s: %w", pkg.Name, pkg.Version, err)
			}
			continue
		}

		if opts.Verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", target)
		}
		sum.Downloaded++
	}

	return sum, nil
}

// fetchOne downloads a single crate to target, creating parent directories
// as needed. Received bytes are written as-is; there is no checksum step.
func fetchOne(fetcher *fetch.Fetcher, pkg cargo.Package, target string, progress bool) error {
	body, length, err := fetcher.Fetch(pkg.Name, pkg.Version)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	var dst io.Writer = out
	if progress {
		bar := progressbar.DefaultBytes(length, fmt.Sprintf("Downloading %s:%s", pkg.Name, pkg.Version))
		defer bar.Close()
		dst = io.MultiWriter(out, bar)
	}

	_, copyErr := io.Copy(dst, body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(target)
		return fmt.Errorf("writing %s: %w", target, copyErr)
	}
	if closeErr != nil {
		os.Remove(target)
		return fmt.Errorf("writing %s: %w", target, closeErr)
	}

	return nil
}
