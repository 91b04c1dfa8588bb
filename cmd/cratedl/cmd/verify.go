package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cratedl/cratedl/internal/cargo"
)

var (
	verifyOutput string
	verifyLayout string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <Cargo.lock>",
	Short: "Verify the output directory matches a Cargo.lock",
	Long: `Verify that every crate recorded in the Cargo.lock is present in the
output directory.

This command checks for:
- Crates missing from the output directory
- Stray .crate files not recorded in the lockfile`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyOutput, "output", "O", ".", "output directory")
	verifyCmd.Flags().StringVar(&verifyLayout, "layout", "", "path to a YAML registry layout config")
}

func runVerify(cmd *cobra.Command, args []string) error {
	pkgs, err := cargo.Load(args[0])
	if err != nil {
		return err
	}

	lay, err := loadLayout(verifyLayout)
	if err != nil {
		return err
	}

	// Build the expected set of archive paths, relative to the output dir.
	expected := make(map[string]string) // rel path -> name@version
	for _, pkg := range pkgs {
		expected[lay.File(pkg.Name, pkg.Version)] = pkg.Name + "@" + pkg.Version
	}

	var missing []string
	for rel, id := range expected {
		if _, err := os.Stat(filepath.Join(verifyOutput, filepath.FromSlash(rel))); err != nil {
			missing = append(missing, id)
		}
	}

	var extra []string
	err = filepath.WalkDir(verifyOutput, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !strings.HasSuffix(d.Name(), ".crate") {
			return nil
		}
		rel, err := filepath.Rel(verifyOutput, path)
		if err != nil {
			return err
		}
		if _, ok := expected[filepath.ToSlash(rel)]; !ok {
			extra = append(extra, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning output directory: %w", err)
	}

	sort.Strings(missing)
	sort.Strings(extra)

	if len(missing) > 0 || len(extra) > 0 {
		cmd.Println("Output directory is out of sync with Cargo.lock:")
		if len(missing) > 0 {
			cmd.Println("\nMissing crates:")
			for _, m := range missing {
				cmd.Printf("  + %s\n", m)
			}
		}
		if len(extra) > 0 {
			cmd.Println("\nStray crate files:")
			for _, e := range extra {
				cmd.Printf("  - %s\n", e)
			}
		}
		return fmt.Errorf("verification failed")
	}

	cmd.Printf("All %d crates present\n", len(pkgs))
	return nil
}
