package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cratedl/cratedl/internal/cargo"
)

var listCmd = &cobra.Command{
	Use:   "list <Cargo.lock>",
	Short: "List the packages recorded in a Cargo.lock",
	Long: `List the name and version of every package in a Cargo.lock, in
file order. Useful for checking what a download run would fetch.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	pkgs, err := cargo.Load(args[0])
	if err != nil {
		return err
	}

	for _, pkg := range pkgs {
		cmd.Printf("%s %s\n", pkg.Name, pkg.Version)
	}

	return nil
}
