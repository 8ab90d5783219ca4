package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kardianos/nimbus/nstore"
	"github.com/spf13/cobra"
)

func secretCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets in the OS secret store",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print a secret",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, ok, err := a.session.Secrets().Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: not found", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY [VALUE]",
			Short: "Store a secret; reads the value from stdin when omitted",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var value string
				if len(args) == 2 {
					value = args[1]
				} else {
					b, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return err
					}
					value = strings.TrimRight(string(b), "\r\n")
				}
				return a.session.Secrets().Set(args[0], value)
			},
		},
		&cobra.Command{
			Use:   "delete KEY",
			Short: "Remove a secret",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.session.Secrets().Delete(args[0])
			},
		},
		&cobra.Command{
			Use:         "backends",
			Short:       "List the secret backends that can be selected",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{"session": "none"},
			RunE: func(cmd *cobra.Command, args []string) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, b := range nstore.DefaultRegistry().Creatable() {
					fmt.Fprintf(tw, "%s\t%s\n", b.Name, b.Description)
				}
				return tw.Flush()
			},
		},
	)
	return cmd
}
