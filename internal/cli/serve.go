package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long outstanding requests may take after a
// shutdown signal.
const ShutdownTimeout = 5 * time.Second

// Serve runs the HTTP surface, and the MCP SSE surface when configured,
// until ctx is done. A failure of either stops both.
func Serve(ctx context.Context, app *App, out io.Writer) error {
	handler, err := app.HTTPHandler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", app.Config.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.Config.Server.ListenAddr, err)
	}
	return ServeListener(ctx, app, ln, handler, out)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, app *App, ln net.Listener, handler http.Handler, out io.Writer) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		printSystemMessage(out, "tooldeck %s serving on http://%s", Version(), ln.Addr())
		app.Logger.Info("http server started", "addr", ln.Addr().String(), "config", app.Config.String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			return srv.Close()
		}
		app.Logger.Info("http server stopped")
		return nil
	})

	if addr := app.Config.MCP.SSEAddr; addr != "" {
		eg.Go(func() error {
			printSystemMessage(out, "MCP SSE endpoint on %s", addr)
			if err := app.MCPServer().ServeSSE(egCtx, addr, app.Config.MCP.BaseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		})
	}

	return eg.Wait()
}
