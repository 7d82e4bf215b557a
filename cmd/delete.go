package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/ledger"
)

var deleteAll bool

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a work record",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every record")
}

func runDelete(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	if deleteAll {
		if len(args) != 0 {
			fmt.Fprintln(os.Stderr, "Use either an id or --all, not both.")
			os.Exit(1)
		}
		if err := app.ledger.DeleteAll(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Println("All records deleted.")
		return nil
	}

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Missing record id. Pass an id or --all.")
		os.Exit(1)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid record id %q.\n", args[0])
		os.Exit(1)
	}

	if err := app.ledger.Delete(id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Deleted record #%d.\n", id)
	return nil
}
