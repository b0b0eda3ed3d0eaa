package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AnandSundar/go-demoproxy/mock"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Inspect the built-in mock table",
}

var mockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every mocked endpoint in lookup order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listMocks(cmd.OutOrStdout(), mock.Default())
	},
}

var mockGetCmd = &cobra.Command{
	Use:   "get METHOD PATH",
	Short: "Print the mock response for a request",
	Long: `Prints the body the proxy would serve in demo mode for METHOD PATH when
the backend is down. PATH is the backend path, e.g. api/v2/members/me.
Exits non-zero when no mock matches.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getMock(cmd.OutOrStdout(), mock.Default(), args[0], args[1])
	},
}

func init() {
	mockCmd.AddCommand(mockListCmd)
	mockCmd.AddCommand(mockGetCmd)
}

func listMocks(w io.Writer, table *mock.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range table.Entries() {
		fmt.Fprintf(tw, "%s\t%s\n", e.Method, e.Pattern)
	}
	return tw.Flush()
}

func getMock(w io.Writer, table *mock.Table, method, path string) error {
	method = strings.ToUpper(method)
	res, ok := table.Lookup(method, path)
	if !ok {
		return fmt.Errorf("no mock for %s %s", method, path)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res.Body)
}
