package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keshon/searchpanel/internal/command"
	"github.com/keshon/searchpanel/internal/config"
	"github.com/keshon/searchpanel/internal/docs"
	"github.com/keshon/searchpanel/pkg/cmd"
)

// catalog registers the bot's commands without their runtime
// dependencies. Only metadata is read from it.
func catalog(a *app) (*cmd.Registry, error) {
	reg := cmd.NewRegistry()
	for _, c := range []command.DiscordCommand{
		command.NewSearchCommand(nil, a.log),
		command.NewPlaylistCommand(nil, a.log),
		&command.QueueCommand{},
		&command.EquallyCommand{},
	} {
		if err := command.Register(reg, c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func newDocsCmd(a *app) *cobra.Command {
	var outPath string

	c := &cobra.Command{
		Use:   "docs",
		Short: "Write the Markdown command reference",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			reg, err := catalog(a)
			if err != nil {
				return err
			}
			sections := docs.Sections(reg, config.CategoryWeights)

			if outPath == "" {
				return docs.WriteMarkdown(cc.OutOrStdout(), sections)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := docs.WriteMarkdown(f, sections); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	c.Flags().StringVarP(&outPath, "out", "o", "", "file to write instead of stdout")
	return c
}
