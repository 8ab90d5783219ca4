package main

import (
	"fmt"

	"github.com/kardianos/nimbus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func dataCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Read and write cached values",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print a cached value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var v any
				ok, err := a.session.GetData(args[0], &v)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: not found", args[0])
				}
				return printYAML(cmd, v)
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Store a string value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.session.SetData(args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "unset KEY",
			Short: "Remove a cached value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.session.SetData(args[0], nil)
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Print every cached value as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				keys, err := a.session.Cache().Keys()
				if err != nil {
					return err
				}
				out := make(map[string]any, len(keys))
				for _, k := range keys {
					var v any
					if _, err := a.session.GetData(k, &v); err != nil {
						return err
					}
					out[k] = v
				}
				return printYAML(cmd, out)
			},
		},
	)
	return cmd
}

// resetCmd runs without a session so a cache that no longer decodes can
// still be removed.
func resetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:         "reset",
		Short:       "Delete the cache, erasing all stored data and ID allocators",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"session": "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete the cache without --yes")
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			path, err := nimbus.RemoveCache(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func printYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
