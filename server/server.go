// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	gobwasws "github.com/gobwas/ws"

	wsserver "github.com/solstice-net/solstice/server/ws"
)

type Config struct {
	Port        uint16 `mapstructure:"port"`
	CertPath    string `mapstructure:"certPath"`
	KeyPath     string `mapstructure:"keyPath"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// newRouter wires the single route everything shares: websocket clients get
// upgraded into a connection loop, `application/nostr+json` requests get the
// relay information document.
func newRouter(ctx context.Context, cfg *Config, handler *wsserver.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/", func(c *gin.Context) {
		switch {
		case strings.EqualFold(c.GetHeader("Upgrade"), "websocket"):
			conn, _, _, err := gobwasws.UpgradeHTTP(c.Request, c.Writer)
			if err != nil {
				log.Printf("WARN: failed to upgrade connection: %v", err)
				c.AbortWithStatus(http.StatusBadRequest)

				return
			}
			go handler.Serve(ctx, conn)
		case strings.Contains(c.GetHeader("Accept"), "application/nostr+json"):
			c.JSON(http.StatusOK, newInfoDocument(cfg))
		default:
			c.String(http.StatusOK, "%v: please connect with a websocket client", cfg.Name)
		}
	})

	return router
}

// ListenAndServe blocks until ctx is done or the listener fails.
func ListenAndServe(ctx context.Context, cfg *Config, handler *wsserver.Handler) error {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: newRouter(ctx, cfg, handler)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARN: failed to shutdown server: %v", err)
		}
	}()

	var err error
	if cfg.CertPath != "" && cfg.KeyPath != "" {
		err = srv.ListenAndServeTLS(cfg.CertPath, cfg.KeyPath)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return errors.Wrap(err, "server failed")
}
