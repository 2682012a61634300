package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keshon/searchpanel/pkg/util"
)

const historyDateTpl = "YYYY-MM-DD hh:mm"

func newHistoryCmd(a *app) *cobra.Command {
	var commands bool

	c := &cobra.Command{
		Use:   "history [guild]",
		Short: "Print stored search picks, or command history with --commands",
		Long:  "Without a guild id the known guild ids are listed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				for _, g := range store.Guilds() {
					cmd.Println(g)
				}
				return nil
			}
			guildID := args[0]

			if commands {
				hist, err := store.FetchCommandHistory(guildID)
				if err != nil {
					return err
				}
				for _, h := range hist {
					cmd.Println(strings.TrimSpace(fmt.Sprintf("%s  %-16s /%s %s",
						util.FormatDateTpl(h.Datetime, historyDateTpl), h.Username, h.Command, h.Param)))
				}
				return nil
			}

			hist, err := store.FetchSearchHistory(guildID)
			if err != nil {
				return err
			}
			if len(hist) == 0 {
				cmd.Println("no search history")
			}
			for _, h := range hist {
				cmd.Printf("%s  %s  %q\n", util.FormatDateTpl(h.Datetime, historyDateTpl), h.UserID, h.Query)
				for i, url := range h.URLs {
					title := url
					if i < len(h.Titles) && h.Titles[i] != "" {
						title = h.Titles[i]
					}
					cmd.Printf("    - %s\n", title)
				}
			}
			return nil
		},
	}

	c.Flags().BoolVar(&commands, "commands", false, "print executed commands instead")
	return c
}
