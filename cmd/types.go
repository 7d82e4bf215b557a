package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/model"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List or manage work types",
	Args:  cobra.NoArgs,
	RunE:  runTypesList,
}

var typesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a work type",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypesAdd,
}

var typesRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a work type",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypesRm,
}

func init() {
	typesCmd.AddCommand(typesAddCmd)
	typesCmd.AddCommand(typesRmCmd)
}

func runTypesList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	settings, err := app.settings.Get()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	for _, t := range settings.WorkTypes {
		fmt.Println(t)
	}
	return nil
}

func runTypesAdd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	settings, err := app.settings.AddWorkType(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Added work type %q. Types: %s\n", args[0], strings.Join(settings.WorkTypes, ", "))
	return nil
}

func runTypesRm(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	settings, err := app.settings.DeleteWorkType(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Removed work type %q. Types: %s\n", args[0], strings.Join(settings.WorkTypes, ", "))
	return nil
}
