package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/model"
)

var featureCmd = &cobra.Command{
	Use:   "feature [name on|off]",
	Short: "List or toggle feature flags",
	Args:  cobra.RangeArgs(0, 2),
	RunE:  runFeature,
}

func runFeature(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	if len(args) == 0 {
		settings, err := app.settings.Get()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		names := make([]string, 0, len(settings.Features))
		for name := range settings.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			state := "off"
			if settings.Features[name] {
				state = "on"
			}
			fmt.Printf("%-10s %s\n", name, state)
		}
		return nil
	}
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: workclock feature <name> on|off")
		os.Exit(1)
	}

	name := args[0]
	var enabled bool
	switch args[1] {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		fmt.Fprintf(os.Stderr, "Invalid state %q: want on or off.\n", args[1])
		os.Exit(1)
	}

	settings, err := app.settings.SetFeature(cmd.Context(), name, enabled)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	state := "off"
	if settings.FeatureEnabled(name) {
		state = "on"
	}
	fmt.Printf("Feature %q is now %s.\n", name, state)
	return nil
}
