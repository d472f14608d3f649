package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"gw/internal/config"
	"gw/internal/xdg"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate every site .conf file and report errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("sites")
		if dir == "" {
			configDir, err := xdg.ConfigDir()
			if err != nil {
				return err
			}
			settings, err := config.LoadOrCreate(configDir)
			if err != nil {
				return err
			}
			dir = settings.SitesDir
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".conf") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		if len(names) == 0 {
			return fmt.Errorf("no .conf files in %s", dir)
		}

		out := cmd.OutOrStdout()
		failures := 0
		for _, name := range names {
			site, err := config.ParseSiteFile(filepath.Join(dir, name))
			if err != nil {
				failures++
				fmt.Fprintf(out, "FAIL %s: %v\n", name, err)
				continue
			}
			fmt.Fprintf(out, "ok   %s (%s -> %s)\n", name, site.LocalHostname, site.TargetHost)
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d site config(s) failed to parse", failures, len(names))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().String("sites", "", "Directory of site .conf files (overrides gateway.yml)")
}
