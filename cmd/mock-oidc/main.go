package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkessler/auth-front/internal/log"
	"github.com/mkessler/auth-front/internal/mockidp"
	"github.com/mkessler/auth-front/internal/server"
)

func main() {
	port := flag.Int("port", 9999, "port to listen on")
	clientID := flag.String("client-id", "", "audience for issued ID tokens (default test-client-id)")
	flag.Parse()

	provider, err := mockidp.New(mockidp.Config{ClientID: *clientID})
	if err != nil {
		log.LogError("Failed to start mock provider: %v", err)
		os.Exit(1)
	}

	srv := server.NewHTTPServer(provider.Handler(), fmt.Sprintf(":%d", *port))
	log.Logf("Mock OIDC provider serving on port %d", *port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.LogError("Server error: %v", err)
		os.Exit(1)
	}
}
