// cmd/cli/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	kkdai "github.com/kkdai/youtube/v2"
	"github.com/spf13/cobra"

	"github.com/keshon/searchpanel/internal/config"
	"github.com/keshon/searchpanel/internal/logging"
	"github.com/keshon/searchpanel/internal/netutil"
	"github.com/keshon/searchpanel/internal/provider/playlist"
	"github.com/keshon/searchpanel/internal/provider/youtube"
	"github.com/keshon/searchpanel/internal/search"
	"github.com/keshon/searchpanel/internal/storage"
)

// app holds what the subcommands share. Tests swap the factories.
type app struct {
	cfg      *config.Config
	log      logging.Logger
	verbose  bool
	out      io.Writer
	searcher func(provider string) (search.Searcher, error)
	storage  func() (*storage.Storage, error)
}

func newApp(out io.Writer) *app {
	a := &app{out: out, log: logging.Discard()}
	a.searcher = a.newSearcher
	a.storage = func() (*storage.Storage, error) { return storage.Open(a.cfg.StoragePath) }
	return a
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "searchpanel",
		Short:         "Run searches and inspect stored data without Discord",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if a.cfg != nil {
				return nil
			}
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			if a.verbose {
				a.log = logging.NewWithOutput(os.Stderr, "debug", cfg.LogFormat)
			}
			return nil
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(newSearchCmd(a), newHistoryCmd(a), newConfigCmd(a), newDocsCmd(a))
	return root
}

func (a *app) newSearcher(provider string) (search.Searcher, error) {
	client, err := netutil.NewHTTPClient(a.cfg.ProxyURL, a.cfg.LookupTimeout)
	if err != nil {
		return nil, err
	}
	switch provider {
	case youtube.Name:
		return youtube.New(youtube.WithHTTPClient(client), youtube.WithMaxResults(a.cfg.SearchMaxResults)).Searcher(), nil
	case playlist.Name:
		return playlist.New(&kkdai.Client{HTTPClient: client}, config.MaxPanelResults).Searcher(), nil
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(newApp(os.Stdout)).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
