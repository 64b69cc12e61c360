package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/client"
)

func settingsCmd() *cobra.Command {
	var (
		settingsPath string
		toggleTheme  bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show local credits and theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if settingsPath == "" {
				p, err := client.DefaultSettingsPath()
				if err != nil {
					return err
				}
				settingsPath = p
			}
			store := client.NewSettingsStore(settingsPath)
			if _, err := store.Load(); err != nil {
				return err
			}
			if toggleTheme {
				if _, err := store.ToggleTheme(); err != nil {
					return err
				}
			}
			st := store.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "credits: %d\ntheme: %s\n", st.Credits, st.Theme)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&settingsPath, "settings", "", "settings file (default under the user config dir)")
	f.BoolVar(&toggleTheme, "toggle-theme", false, "switch between light and dark")
	return cmd
}
