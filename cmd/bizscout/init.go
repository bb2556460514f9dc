package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/bizscout/internal/browser"
	"github.com/nao1215/bizscout/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/bizscout.yaml
var profileTemplate []byte

// configFileName is where init writes the profile unless told otherwise.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter bizscout profile",
		Long: `Init writes a commented profile that 'bizscout scan' picks up.

The profile holds the search to crawl, the filter thresholds, the
excluded business categories, the retirement and emigration words, and
the CSS selectors of the directory's markup.

Examples:
  # Write .bizscout in the current directory
  bizscout init

  # Start from a narrower search
  bizscout init --search "https://uk.businessesforsale.com/uk/search/businesses-for-sale-in-kent"

  # Print the profile instead of writing it
  bizscout init --stdout > kent.yaml

  # Replace an existing profile
  bizscout init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Where to write the profile")
	cmd.Flags().BoolP("force", "f", false,
		"Replace an existing profile")
	cmd.Flags().String("search", "",
		"Search URL written into the profile (default: the built-in search)")
	cmd.Flags().Bool("stdout", false,
		"Print the profile instead of writing a file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	outputPath, err := flags.GetString("output")
	if err != nil {
		return err
	}
	force, err := flags.GetBool("force")
	if err != nil {
		return err
	}
	search, err := flags.GetString("search")
	if err != nil {
		return err
	}
	toStdout, err := flags.GetBool("stdout")
	if err != nil {
		return err
	}

	content, err := renderProfile(search)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if toStdout {
		_, err := out.Write(content)
		return err
	}

	if err := writeProfileFile(outputPath, content, force); err != nil {
		return err
	}

	fmt.Fprintf(out, "Created profile: %s\n", outputPath)
	fmt.Fprintln(out, "Run 'bizscout scan' from this directory, or pass it with -c.")
	return nil
}

// renderProfile returns the template with search swapped in.
func renderProfile(search string) ([]byte, error) {
	if search == "" {
		return profileTemplate, nil
	}
	if _, err := browser.ValidateURL(search); err != nil {
		return nil, fmt.Errorf("invalid --search: %w", err)
	}

	line := []byte("search: " + strconv.Quote(config.DefaultSearchURL))
	if !bytes.Contains(profileTemplate, line) {
		return nil, errors.New("profile template has no search line")
	}
	return bytes.Replace(profileTemplate, line, []byte("search: "+strconv.Quote(search)), 1), nil
}

// writeProfileFile creates path. Without force an existing file is left alone.
func writeProfileFile(path string, content []byte, force bool) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flag = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	f, err := os.OpenFile(filepath.Clean(path), flag, 0600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("profile already exists: %s (use -f to replace it)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return f.Close()
}
