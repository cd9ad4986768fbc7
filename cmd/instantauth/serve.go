package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MrEthical07/instantauth/metrics/export/prometheus"
	"github.com/MrEthical07/instantauth/middleware"
	"github.com/MrEthical07/instantauth/session"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP echo server guarded by the engine",
		Long: `serve exposes:

  POST /v1/first    bootstrap blob in, private key for the blob's public key
                    out as a bootstrap blob (409 if the key is taken)
  POST /v1/echo     authenticated blob in, blob with the same data out
  GET  /metrics     Prometheus metrics
  GET  /healthz     Redis connectivity`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = a.cfg.Serve.Addr
			}
			handler, err := newServeMux(a)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", addr).Info("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, defaults to Serve.Addr")
	return cmd
}

func newServeMux(a *app) (http.Handler, error) {
	exporter, err := prometheus.NewExporter(a.engine)
	if err != nil {
		return nil, err
	}
	maxBody := a.cfg.Serve.MaxBodyBytes

	mux := http.NewServeMux()
	mux.Handle("POST /v1/first", middleware.Guard(a.engine, middleware.FlowFirstContext, maxBody)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, _ := middleware.ContextFromRequest(r)
			publicKey, ok := ac.AuthKey()
			if !ok || !session.ValidPublicKey(publicKey) {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}

			ttl := a.cfg.Redis.SessionTTL.Duration
			rec, err := session.Provision(ttl, "bootstrap")
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			rec.PublicKey = publicKey
			switch err := a.store.Save(r.Context(), rec, ttl); {
			case errors.Is(err, session.ErrExists):
				http.Error(w, "conflict", http.StatusConflict)
				return
			case err != nil:
				a.log.WithError(err).Error("save bootstrap session")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			// The client holds no private key yet, so the reply is a bootstrap
			// blob keyed by the shared secret, like the request.
			reply := &session.Record{PublicKey: publicKey, PrivateKey: a.cfg.Engine.SecretKey}
			data := map[string]string{
				"private_key": rec.PrivateKey,
				"expires_at":  strconv.FormatInt(rec.ExpiresAt, 10),
			}
			if err := middleware.WriteBlob(w, r, a.engine, reply, data); err != nil {
				a.log.WithError(err).Warn("bootstrap reply failed")
			}
		}),
	))
	mux.Handle("POST /v1/echo", middleware.Guard(a.engine, middleware.FlowContext, maxBody)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, _ := middleware.ContextFromRequest(r)
			if err := middleware.WriteBlob(w, r, a.engine, ac.Session(), ac.Data()); err != nil {
				a.log.WithError(err).Warn("echo write failed")
			}
		}),
	))
	mux.Handle("GET /metrics", exporter.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.store.Ping(r.Context()); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux, nil
}
