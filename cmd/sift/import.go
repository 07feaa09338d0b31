package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/plan"
	"github.com/Veraticus/sift/internal/source"
)

func importCmd() *cobra.Command {
	var (
		format      string
		name        string
		titleColumn string
		groupColumn string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create an import session and generate its plan",
		Long: `Read a file (or "-" for stdin), store it as a new import session and
classify every item. Items the classifier is unsure about must be resolved
with "sift resolve" before the session can be executed.`,
		Example: `  # Import a spreadsheet export grouped by its "Group" column
  sift import board.csv --format csv

  # Import a bank statement
  sift import statement.qfx --format ofx

  # Import pasted notes
  pbpaste | sift import - --format text --name "Standup notes"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if format == "" {
				format = formatFromExtension(args[0])
			}
			if name == "" && args[0] != "-" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			session, err := a.importer.CreateSession(ctx, format, string(data))
			if err != nil {
				return err
			}

			p, err := a.importer.GeneratePlan(ctx, session.ID, source.Options{
				ImportName:  name,
				TitleColumn: titleColumn,
				GroupColumn: groupColumn,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := cli.RenderPlan(out, p, plan.CanCommit(p)); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s\n", cli.FormatInfo("Session "+session.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", fmt.Sprintf("input format (%s); guessed from the file extension when omitted", strings.Join(source.Formats(), ", ")))
	cmd.Flags().StringVarP(&name, "name", "n", "", "title of the root container (default: file name)")
	cmd.Flags().StringVar(&titleColumn, "title-column", "", "CSV column used as the item title")
	cmd.Flags().StringVar(&groupColumn, "group-column", "", "CSV column whose values become sub-containers")

	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".ofx", ".qfx":
		return "ofx"
	case ".json":
		return "monday"
	default:
		return "text"
	}
}
