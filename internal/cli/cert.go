package cli

import (
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gw/internal/certs"
	"gw/internal/config"
	"gw/internal/xdg"
)

var certCmd = &cobra.Command{
	Use:   "cert [hostname...]",
	Short: "Issue certificates for HTTPS-fronted sites without starting the gateway",
	Long: `Issues (or re-issues) leaf certificates signed by the gw root CA and writes
them under the state directory. With no arguments, every HTTPS-fronted site
gets a certificate. The root CA path is printed so it can be added to the
system or browser trust store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := xdg.ConfigDir()
		if err != nil {
			return err
		}
		settings, err := config.LoadOrCreate(configDir)
		if err != nil {
			return err
		}

		hostnames := args
		if len(hostnames) == 0 {
			sites, err := config.LoadSites(settings.SitesDir)
			if err != nil {
				return err
			}
			for _, s := range sites {
				if s.TargetProtocol == "https" {
					hostnames = append(hostnames, s.LocalHostname)
				}
			}
		}
		if len(hostnames) == 0 {
			return fmt.Errorf("no HTTPS-fronted sites configured and no hostnames given")
		}

		ca, err := certs.LoadOrIssueRoot(settings.StateDir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, hostname := range hostnames {
			leaf, err := ca.IssueLeaf(hostname)
			if err != nil {
				return err
			}
			path := filepath.Join(settings.StateDir, hostname+".pem")
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			for _, der := range leaf.Certificate {
				if err := pem.Encode(f, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
					f.Close()
					return err
				}
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(out, "issued %s -> %s\n", hostname, path)
		}
		fmt.Fprintf(out, "root CA: %s\n", ca.RootCertPath())
		return nil
	},
}
