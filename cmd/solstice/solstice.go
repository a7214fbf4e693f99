package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/solstice-net/solstice/cfg"
	"github.com/solstice-net/solstice/relay"
	"github.com/solstice-net/solstice/server"
	wsserver "github.com/solstice-net/solstice/server/ws"
	"github.com/solstice-net/solstice/store"
	"github.com/solstice-net/solstice/store/sqlite"
)

var (
	port       uint16
	configPath string
	database   string
	solstice   = &cobra.Command{
		Use:   "solstice",
		Short: "solstice",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			cfg.MustInit(configPath)

			var eventStore store.Store
			if database == "" || database == ":memory:" {
				eventStore = store.NewMemory()
			} else {
				eventStore = sqlite.MustOpen(database)
			}

			dispatcher := relay.NewDispatcher(*cfg.MustGet[relay.Config](), eventStore, relay.NewRegistry())

			serverCfg := cfg.MustGet[server.Config]()
			if port != 0 {
				serverCfg.Port = port
			}
			if err := server.ListenAndServe(ctx, serverCfg, wsserver.NewHandler(dispatcher)); err != nil {
				log.Panic(err)
			}
		},
	}
	initFlags = func() {
		solstice.Flags().StringVar(&configPath, "config", "", "path to the yaml configuration file")
		solstice.Flags().StringVar(&database, "db", "", "path to the sqlite database; empty or `:memory:` keeps events in memory only")
		solstice.Flags().Uint16Var(&port, "port", 0, "port to communicate with clients (http/websocket)")
	}
)

func init() {
	initFlags()
}

func main() {
	if err := solstice.Execute(); err != nil {
		log.Panic(err)
	}
}
