package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gw/internal/config"
	"gw/internal/routing"
	"gw/internal/xdg"
)

var (
	siteNameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	siteLocalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	siteMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var sitesCmd = &cobra.Command{
	Use:     "sites",
	Aliases: []string{"ls"},
	Short:   "List the configured sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, sites, err := loadSettingsAndSites(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, s := range sites {
			fmt.Fprintf(out, "%s  %s  %s\n",
				siteNameStyle.Render(s.Name),
				siteLocalStyle.Render(localURL(s, settings)),
				siteMutedStyle.Render(fmt.Sprintf("-> %s://%s:%d (%d rewrites)",
					s.TargetProtocol, s.TargetHost, s.TargetPort,
					len(s.ExplicitRewrites)+len(s.WildcardRewrites))),
			)
		}
		return nil
	},
}

func loadSettingsAndSites(cmd *cobra.Command) (config.Settings, []*routing.Site, error) {
	configDir, err := xdg.ConfigDir()
	if err != nil {
		return config.Settings{}, nil, err
	}
	settings, err := config.LoadOrCreate(configDir)
	if err != nil {
		return config.Settings{}, nil, err
	}
	if dir, _ := cmd.Flags().GetString("sites"); dir != "" {
		settings.SitesDir = dir
	}
	sites, err := config.LoadSites(settings.SitesDir)
	if err != nil {
		return config.Settings{}, nil, err
	}
	return settings, sites, nil
}

func localURL(s *routing.Site, settings config.Settings) string {
	scheme, port := "http", settings.HTTPPort
	if s.TargetProtocol == "https" {
		scheme, port = "https", settings.HTTPSPort
	}
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s/", scheme, s.LocalHostname)
	}
	return fmt.Sprintf("%s://%s:%d/", scheme, s.LocalHostname, port)
}

func init() {
	sitesCmd.Flags().String("sites", "", "Directory of site .conf files (overrides gateway.yml)")
}
