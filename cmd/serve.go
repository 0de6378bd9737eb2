package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/markjakearzadon/hostel-portal.git/internal/checkout"
	"github.com/markjakearzadon/hostel-portal.git/internal/db"
	"github.com/markjakearzadon/hostel-portal.git/internal/fakebackend"
	"github.com/markjakearzadon/hostel-portal.git/internal/handlers"
	"github.com/markjakearzadon/hostel-portal.git/internal/services"
	"github.com/markjakearzadon/hostel-portal.git/internal/session"
)

const fakeKeyID = "rzp_test_fakebackend"

func newServeCmd(a *app) *cobra.Command {
	var (
		port        string
		fakeBackend bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the portal HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, fakeBackend)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&fakeBackend, "fake-backend", false, "serve against an in-process demo backend")
	return cmd
}

func (a *app) serve(ctx context.Context, fakeBackend bool) error {
	cfg, logger := a.cfg, a.logger

	if fakeBackend {
		url, shutdown, err := startFakeBackend(logger)
		if err != nil {
			return err
		}
		defer shutdown()
		cfg.BackendURL = url
		cfg.ScriptURL = url + fakebackend.ScriptPath
		if cfg.KeyID == "" {
			cfg.KeyID = fakeKeyID
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	newStore := session.MemoryStores()
	if cfg.MongoURI != "" {
		client, err := db.Connect(ctx, cfg.MongoURI, logger)
		if err != nil {
			return err
		}
		defer db.Disconnect(client, logger)
		newStore = session.MongoStores(client.Database(cfg.MongoDatabase))
	} else {
		logger.Info("MONGOURI not set, sessions are kept in memory")
	}

	backend := services.NewBackendClient(cfg.BackendURL, cfg.BackendTimeout, logger.Named("backend"))
	bridge := checkout.NewBridge(checkout.Config{
		KeyID:          cfg.KeyID,
		ScriptURL:      cfg.ScriptURL,
		MerchantName:   cfg.MerchantName,
		Description:    cfg.Description,
		ThemeColor:     cfg.ThemeColor,
		DefaultEmail:   cfg.DefaultEmail,
		DefaultContact: cfg.DefaultContact,
	}, logger.Named("checkout"))

	clients := handlers.NewClients(newStore, backend, bridge, logger.Named("recharge"))
	defer clients.Close()

	router := handlers.Router(
		handlers.NewAuthHandler(backend, clients, logger),
		handlers.NewDashboardHandler(backend, clients, logger),
		handlers.NewRechargeHandler(clients, logger),
		handlers.NewCheckoutHandler(bridge, clients, cfg.BackendTimeout, logger),
	)
	router.Use(handlers.Logging(logger.Named("http")))

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.BackendTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("port", cfg.Port), zap.String("backend", cfg.BackendURL))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// startFakeBackend serves the demo backend on a loopback port.
func startFakeBackend(logger *zap.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to start fake backend: %w", err)
	}
	srv := &http.Server{Handler: fakebackend.Demo().Handler(), ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln)

	url := "http://" + ln.Addr().String()
	logger.Info("fake backend running", zap.String("url", url), zap.String("username", "student"))
	return url, func() { srv.Close() }, nil
}
