package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// noQuotesMessage is printed instead of a quote when the filtered view is empty.
const noQuotesMessage = "No quotes available in this category."

func printQuote(w io.Writer, q domain.Quote) {
	fmt.Fprintf(w, "%q\n  #%d, %s\n", q.Text, q.ID, q.Category)
}

func newListCmd(service func() *app.QuoteService) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes in store order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			for _, q := range service().List(cmd.Context(), category) {
				fmt.Fprintf(out, "%4d  [%s] %s\n", q.ID, q.Category, q.Text)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list quotes in this category")

	return cmd
}

func newAddCmd(service func() *app.QuoteService) *cobra.Command {
	return &cobra.Command{
		Use:   "add <category> <text...>",
		Short: "Add a quote",
		Example: `  quotectl add Wisdom "Know thyself."
  quotectl add Humor I am on a seafood diet`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := service().Add(cmd.Context(), strings.Join(args[1:], " "), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added #%d\n", q.ID)

			return nil
		},
	}
}

func newRandomCmd(service func() *app.QuoteService) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Show a random quote from the current filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showRandom(cmd, service())
		},
	}
}

// showRandom prints a random quote, or noQuotesMessage for an empty view.
func showRandom(cmd *cobra.Command, s *app.QuoteService) error {
	q, err := s.RandomQuote(cmd.Context())
	if errors.Is(err, domain.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), noQuotesMessage)
		return nil
	}

	if err != nil {
		return err
	}

	printQuote(cmd.OutOrStdout(), q)

	return nil
}

func newCategoriesCmd(service func() *app.QuoteService) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List distinct categories; the current filter is marked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := service()
			printCategories(cmd.OutOrStdout(), s.Categories(), s.Filter())

			return nil
		},
	}
}

func printCategories(w io.Writer, categories []string, filter string) {
	for _, c := range append([]string{domain.FilterAll}, categories...) {
		marker := " "
		if c == filter {
			marker = "*"
		}

		fmt.Fprintf(w, "%s %s\n", marker, c)
	}
}

func newFilterCmd(service func() *app.QuoteService) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [category]",
		Short: "Show or set the category filter",
		Long: `Without an argument, filter prints the current filter.
With one, it selects that category ("all" for every quote) and shows a
random quote from the new view. An unknown category selects "all".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := service()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				fmt.Fprintln(out, s.Filter())
				return nil
			}

			effective, err := s.SetFilter(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "filter: %s\n", effective)

			return showRandom(cmd, s)
		},
	}
}

func newSyncCmd(service func() *app.QuoteService) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile with the remote endpoint (server wins)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := service().Sync(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"new from server: %d\nconflicts resolved: %d\npushed to server: %d\n",
				summary.NewFromServer, summary.ConflictsResolved, summary.PushedToServer)

			return nil
		},
	}
}

func newExportCmd(service func() *app.QuoteService) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every quote as a JSON array (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := service().Export(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", args[0])

			return nil
		},
	}
}

func newImportCmd(service func() *app.QuoteService) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Append quotes from a JSON array file (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()

			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening %s: %w", args[0], err)
				}
				defer f.Close()

				r = f
			}

			n, err := service().Import(cmd.Context(), r)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d quotes\n", n)

			return nil
		},
	}
}
