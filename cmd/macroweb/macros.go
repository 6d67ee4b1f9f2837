package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/v0xg/macroweb/internal/macro"
	"github.com/v0xg/macroweb/internal/store"
)

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> [file]",
		Short: "Store a macro file under a name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readMacroFile(fileArg(args, 1))
			if err != nil {
				return err
			}

			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Save(cmd.Context(), args[0], string(data)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved macro %q\n", args[0])
			return nil
		},
	}
}

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <name> [file]",
		Short: "Write a stored macro to a file for editing",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			text, err := store.Load(cmd.Context(), s, args[0])
			if err != nil {
				return fmt.Errorf("load %q: %w", args[0], err)
			}

			path := fileArg(args, 1)
			if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded macro %q into %s\n", args[0], path)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored macros",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			all, err := s.LoadAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "No macros found")
				return nil
			}

			names := make([]string, 0, len(all))
			for name := range all {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				m, err := macro.Parse([]byte(all[name]))
				if err != nil {
					fmt.Fprintf(out, "%s\t(invalid)\n", name)
					continue
				}
				fmt.Fprintf(out, "%s\t%d step(s)\n", name, len(m))
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored macro",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted macro %q\n", args[0])
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <out>",
		Short: "Export a stored macro to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			text, err := store.Load(cmd.Context(), s, args[0])
			if err != nil {
				return fmt.Errorf("load %q: %w", args[0], err)
			}
			if err := os.WriteFile(args[1], []byte(text), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %q to %s\n", args[0], args[1])
			return nil
		},
	}
}
