package main

import (
	"fmt"
	"net/http"

	"github.com/carbocation/ensemblefit/checkpoint"
	"github.com/carbocation/ensemblefit/logging"
	"github.com/carbocation/ensemblefit/statusapi"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	port int
	bind string
}

var serveCmd = &cobra.Command{
	Use:   "serve <checkpoint.db> [output_path]",
	Short: "Serve task states and metrics from a job's checkpoint as JSON",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := checkpoint.Open(args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		output := ""
		if len(args) > 1 {
			output = args[1]
		}

		addr := fmt.Sprintf("%s:%d", serveFlags.bind, serveFlags.port)
		logging.New("main").Info("serving job status", "addr", addr, "checkpoint", args[0])

		return http.ListenAndServe(addr, statusapi.Router(store, output))
	},
}

func init() {
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 9019, "HTTP port")
	serveCmd.Flags().StringVar(&serveFlags.bind, "bind", "127.0.0.1", "Bind address")
}
