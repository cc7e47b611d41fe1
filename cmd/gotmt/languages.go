package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func languagesCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List or add languages",
	}
	cmd.AddCommand(languagesListCmd(st), languagesAddCmd(st))
	return cmd
}

func languagesListCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Bootstrap(cmd.Context()); err != nil {
				return err
			}
			langs, err := a.service.Languages(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tDEFAULT")
			for _, l := range langs {
				def := ""
				if l.IsDefault {
					def = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Code, l.Name, def)
			}
			return tw.Flush()
		},
	}
}

func languagesAddCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "add CODE NAME",
		Short: "Add a language and translate every existing entry into it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			a, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Bootstrap(cmd.Context()); err != nil {
				return err
			}
			lang, count, err := a.service.AddLanguage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s), %d translations updated\n", lang.Code, lang.Name, count)
			return nil
		},
	}
}
