package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/salesiq/internal/server"
)

var serverAddr string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API and chat WebSocket",
	Long:  `Starts the salesiq HTTP server with the ask, export, session history and audit endpoints and a WebSocket chat at /ws/chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		addr := a.cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr = serverAddr
		}
		srv := server.New(server.Config{
			Addr:         addr,
			CORSOrigins:  a.cfg.Server.CORSOrigins,
			HistoryLimit: a.cfg.Engine.HistoryLimit,
		}, server.Deps{
			Engine: a.engine,
			Audit:  a.audit,
			Data:   a.data,
			Index:  a.index,
			Logger: a.logger,
		})

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "salesiq server %s starting on %s\n", Version, addr)
		fmt.Fprintf(os.Stderr, "  Store: %s\n", a.cfg.Store)
		fmt.Fprintf(os.Stderr, "  Documents indexed: %d\n", a.index.Count())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().StringVar(&serverAddr, "addr", ":8080", "address to listen on")
	rootCmd.AddCommand(serverCmd)
}
