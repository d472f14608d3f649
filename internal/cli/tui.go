package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gw/internal/routing"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the configured sites interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, sites, err := loadSettingsAndSites(cmd)
		if err != nil {
			return err
		}
		if len(sites) == 0 {
			return fmt.Errorf("no sites configured in %s", settings.SitesDir)
		}

		items := make([]list.Item, 0, len(sites))
		for _, s := range sites {
			items = append(items, siteItem{site: s, url: localURL(s, settings)})
		}
		l := list.New(items, list.NewDefaultDelegate(), 0, 0)
		l.Title = "gw sites"
		l.SetShowStatusBar(false)
		l.SetFilteringEnabled(true)

		_, err = tea.NewProgram(sitesModel{list: l}, tea.WithAltScreen()).Run()
		return err
	},
}

type siteItem struct {
	site *routing.Site
	url  string
}

func (i siteItem) Title() string { return i.site.Name }

func (i siteItem) Description() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s -> %s://%s:%d", i.url, i.site.TargetProtocol, i.site.TargetHost, i.site.TargetPort))
	if n := len(i.site.ExplicitRewrites); n > 0 {
		parts = append(parts, fmt.Sprintf("%d explicit", n))
	}
	if n := len(i.site.WildcardRewrites); n > 0 {
		parts = append(parts, fmt.Sprintf("%d wildcard", n))
	}
	return strings.Join(parts, " · ")
}

func (i siteItem) FilterValue() string { return i.site.Name + " " + i.site.LocalHostname }

type sitesModel struct {
	list list.Model
}

var tuiFrameStyle = lipgloss.NewStyle().Margin(1, 2)

func (m sitesModel) Init() tea.Cmd { return nil }

func (m sitesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := tuiFrameStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m sitesModel) View() string {
	return tuiFrameStyle.Render(m.list.View())
}

func init() {
	tuiCmd.Flags().String("sites", "", "Directory of site .conf files (overrides gateway.yml)")
}
