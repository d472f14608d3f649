package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gw/internal/certs"
	"gw/internal/config"
	"gw/internal/proxy"
	"gw/internal/routing"
	"gw/internal/xdg"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the site configs and run the gateway listeners",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpPort, _ := cmd.Flags().GetInt("http")
		httpsPort, _ := cmd.Flags().GetInt("https")
		sitesDir, _ := cmd.Flags().GetString("sites")
		noWatch, _ := cmd.Flags().GetBool("no-watch")

		configDir, err := xdg.ConfigDir()
		if err != nil {
			return err
		}
		settings, err := config.LoadOrCreate(configDir)
		if err != nil {
			return err
		}
		if httpPort > 0 {
			settings.HTTPPort = httpPort
		}
		if httpsPort > 0 {
			settings.HTTPSPort = httpsPort
		}
		if sitesDir != "" {
			settings.SitesDir = sitesDir
		}
		if err := os.MkdirAll(settings.SitesDir, 0o755); err != nil {
			return err
		}

		sites, err := config.LoadSites(settings.SitesDir)
		if err != nil {
			return err
		}
		if len(sites) == 0 {
			return fmt.Errorf("no usable site configs in %s; add a <name>.conf and retry", settings.SitesDir)
		}
		table := routing.NewTable(sites)
		for _, s := range table.Sites() {
			log.Printf("site %s: %s -> %s://%s:%d", s.Name, s.LocalHostname, s.TargetProtocol, s.TargetHost, s.TargetPort)
		}

		pipeline := proxy.New(table, settings.HTTPPort, settings.HTTPSPort, settings.UserAgent)

		store, err := buildCertStore(settings, table)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", settings.HTTPPort),
			Handler:           pipeline.Handler(false),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Printf("gw HTTP listening on %s", httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http listener: %w", err)
			}
			return nil
		})

		var httpsSrv *http.Server
		if store != nil {
			httpsSrv = &http.Server{
				Addr:              fmt.Sprintf(":%d", settings.HTTPSPort),
				Handler:           pipeline.Handler(true),
				TLSConfig:         store.TLSConfig(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			g.Go(func() error {
				log.Printf("gw HTTPS listening on %s", httpsSrv.Addr)
				if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("https listener: %w", err)
				}
				return nil
			})
		}

		if settings.WatchSites && !noWatch {
			g.Go(func() error {
				return config.WatchSites(ctx, settings.SitesDir)
			})
		}

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
			if httpsSrv != nil {
				_ = httpsSrv.Shutdown(shutdownCtx)
			}
			return nil
		})

		return g.Wait()
	},
}

// buildCertStore issues one leaf per HTTPS-fronted hostname before the
// HTTPS listener starts. Returns nil when no site needs TLS.
func buildCertStore(settings config.Settings, table *routing.Table) (*certs.Store, error) {
	var hostnames []string
	for _, s := range table.Sites() {
		if s.TargetProtocol == "https" {
			hostnames = append(hostnames, s.LocalHostname)
		}
	}
	if len(hostnames) == 0 {
		return nil, nil
	}

	ca, err := certs.LoadOrIssueRoot(settings.StateDir)
	if err != nil {
		return nil, err
	}
	store := certs.NewStore()
	for _, hostname := range hostnames {
		leaf, err := ca.IssueLeaf(hostname)
		if err != nil {
			return nil, err
		}
		store.Add(hostname, leaf)
	}
	log.Printf("issued %d certificate(s); trust the root at %s", store.Len(), ca.RootCertPath())
	return store, nil
}

func init() {
	serveCmd.Flags().Int("http", 0, "HTTP listener port (overrides gateway.yml)")
	serveCmd.Flags().Int("https", 0, "HTTPS listener port (overrides gateway.yml)")
	serveCmd.Flags().String("sites", "", "Directory of site .conf files (overrides gateway.yml)")
	serveCmd.Flags().Bool("no-watch", false, "Disable the site config change watcher")
}
