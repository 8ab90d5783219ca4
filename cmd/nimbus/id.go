package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func idCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Work with persistent ID allocators",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create NAMESPACE [NAME]",
			Short: "Allocate an ID, reusing the one bound to NAME",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var name string
				if len(args) == 2 {
					name = args[1]
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.session.IDs().Get(args[0]).Create(name))
				return nil
			},
		},
		&cobra.Command{
			Use:   "associate NAMESPACE ID NAME",
			Short: "Bind NAME to an issued ID",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid id %q", args[1])
				}
				a.session.IDs().Get(args[0]).Associate(id, args[2])
				return nil
			},
		},
		&cobra.Command{
			Use:   "recycle NAMESPACE ID",
			Short: "Return an ID to the pool and drop its names",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid id %q", args[1])
				}
				a.session.IDs().Get(args[0]).Recycle(id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show [NAMESPACE]",
			Short: "Print allocator state as YAML",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				names := a.session.IDs().Names()
				if len(args) == 1 {
					names = args[:1]
				}
				type view struct {
					LastID       int            `yaml:"last_id"`
					Recycled     []int          `yaml:"recycled,omitempty"`
					Associations map[string]int `yaml:"associations,omitempty"`
				}
				out := make(map[string]view, len(names))
				for _, n := range names {
					al := a.session.IDs().Get(n)
					out[n] = view{
						LastID:       al.LastID(),
						Recycled:     al.Recycled(),
						Associations: al.Associations(),
					}
				}
				return printYAML(cmd, out)
			},
		},
	)
	return cmd
}
