package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/risklab/internal/editor"
	"github.com/newthinker/risklab/internal/web"
)

var routesResolve string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the UI route table",
	Example: `  risklab routes
  risklab routes --resolve /strategy/edit/42`,
	Args: cobra.NoArgs,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().StringVar(&routesResolve, "resolve", "", "resolve a path against the table")
}

func runRoutes(cmd *cobra.Command, args []string) error {
	h, err := web.NewHandler(web.Config{Editor: editor.Default()}, nil)
	if err != nil {
		return err
	}
	table := h.Table()
	out := cmd.OutOrStdout()

	if routesResolve != "" {
		m, err := table.Resolve(routesResolve)
		if err != nil {
			return fmt.Errorf("%s: %w", routesResolve, err)
		}
		fmt.Fprintf(out, "route:  %s\n", m.Route.Name)
		fmt.Fprintf(out, "path:   %s\n", m.Path)
		if m.RedirectedFrom != "" {
			fmt.Fprintf(out, "from:   %s\n", m.RedirectedFrom)
		}
		if len(m.Params) > 0 {
			keys := make([]string, 0, len(m.Params))
			for k := range m.Params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, k+"="+m.Params[k])
			}
			fmt.Fprintf(out, "params: %s\n", strings.Join(pairs, " "))
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tNAME\tTARGET\tLOADING")
	for _, r := range table.Routes() {
		switch {
		case r.Redirect != "":
			fmt.Fprintf(w, "%s\t-\tredirect %s\t-\n", r.Path, r.Redirect)
		case r.Component.Deferred():
			fmt.Fprintf(w, "%s\t%s\tview\tlazy\n", r.Path, r.Name)
		default:
			fmt.Fprintf(w, "%s\t%s\tview\teager\n", r.Path, r.Name)
		}
	}
	return w.Flush()
}
