package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"venuescraper/pkg/logger"
)

var servePort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the data directory over HTTP",
	Long: `Serve the data directory over HTTP for local inspection of the dataset
and its snapshots. Intended for development use on a trusted network only.`,
	Example: `  venuescraper serve --port 8080`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 8000, "port to listen on")
}

func runServe() error {
	cfg, err := setup(globalFlags())
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(cfg.Output.DataDir)))

	addr := fmt.Sprintf(":%d", servePort)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.WithField("addr", addr).Info("serving data directory")
	fmt.Printf("Serving %s on http://localhost%s (Ctrl-C to stop)\n", cfg.Output.DataDir, addr)

	return server.ListenAndServe()
}
