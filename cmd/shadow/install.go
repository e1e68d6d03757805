package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const aliasMarker = "alias shadow="

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Add a shell alias for this binary to ~/.bashrc",
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

func runInstall(cmd *cobra.Command, _ []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}
	rc := filepath.Join(home, ".bashrc")

	added, err := installAlias(rc, exe)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !added {
		fmt.Fprintf(out, "[INFO] shadow alias already exists in %s\n", rc)
		return nil
	}
	fmt.Fprintf(out, "[SUCCESS] Alias added to %s\n", rc)
	fmt.Fprintln(out, "Please run 'source ~/.bashrc' or restart your terminal.")
	return nil
}

// installAlias appends an alias for exe to the rc file unless one is
// already there. It reports whether the file was changed.
func installAlias(rc, exe string) (bool, error) {
	data, err := os.ReadFile(rc)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %s: %w", rc, err)
	}
	if strings.Contains(string(data), aliasMarker) {
		return false, nil
	}

	f, err := os.OpenFile(rc, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", rc, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "\n# Shadow Engine CLI alias\n%s'%s'\n", aliasMarker, exe); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", rc, err)
	}
	return true, nil
}
