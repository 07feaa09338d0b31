package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/config"
)

func vocabularyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocabulary",
		Short: "List the fact kinds items can be classified as",
		Long: `Show the fact vocabulary in use: the built-in kinds, or the YAML file
configured under vocabulary.path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			vocab, err := loadVocabulary(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.HeaderStyle.Render("KIND"),
				cli.HeaderStyle.Render("REQUIRED"),
				cli.HeaderStyle.Render("DESCRIPTION"),
			}, "\t"))
			for _, name := range vocab.Names() {
				kind, _ := vocab.Lookup(name)
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					cli.InfoStyle.Render(kind.Kind),
					strings.Join(kind.RequiredFields, ", "),
					kind.Description)
			}
			return w.Flush()
		},
	}
}
