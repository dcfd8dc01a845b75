package query

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// NewQueryCmd builds the "samply query" command group: one subcommand per
// HTTP query endpoint in §6, plus the export-pprof supplemental feature.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a running samply server",
	}
	cmd.AddCommand(newHotspotsCmd())
	cmd.AddCommand(newCallersCmd())
	cmd.AddCommand(newCalleesCmd())
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newAsmCmd())
	cmd.AddCommand(newDrilldownCmd())
	cmd.AddCommand(newExportPprofCmd())
	return cmd
}

func newHotspotsCmd() *cobra.Command {
	var (
		limit            int
		thread           string
		includeLines     bool
		includeAddresses bool
	)
	cmd := &cobra.Command{
		Use:   "hotspots",
		Short: "List the functions with the most self time",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			if thread != "" {
				params.Set("thread", thread)
			}
			params.Set("include_lines", strconv.FormatBool(includeLines))
			params.Set("include_addresses", strconv.FormatBool(includeAddresses))

			data, err := runQuery("/query/hotspots", params)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of hotspots")
	cmd.Flags().StringVar(&thread, "thread", "", "restrict to threads whose name contains this substring")
	cmd.Flags().BoolVar(&includeLines, "include-lines", false, "include per-line sample breakdown")
	cmd.Flags().BoolVar(&includeAddresses, "include-addresses", false, "include per-address sample breakdown")
	return cmd
}

func newCallersCmd() *cobra.Command {
	return newTreeCmd("callers", "/query/callers", "Show the call tree leading into a function")
}

func newCalleesCmd() *cobra.Command {
	return newTreeCmd("callees", "/query/callees", "Show the call tree a function leads into")
}

func newTreeCmd(name, path, short string) *cobra.Command {
	var (
		function string
		depth    int
		limit    int
	)
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("function", function)
			if depth > 0 {
				params.Set("depth", strconv.Itoa(depth))
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			data, err := runQuery(path, params)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	cmd.Flags().StringVar(&function, "function", "", "function name or substring pattern (required)")
	cmd.Flags().IntVar(&depth, "depth", 5, "maximum tree depth")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum children per level")
	_ = cmd.MarkFlagRequired("function")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show profile-level summary information",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := runQuery("/query/summary", nil)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func newAsmCmd() *cobra.Command {
	var function string
	cmd := &cobra.Command{
		Use:   "asm",
		Short: "Disassemble a function with sample annotations",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("function", function)
			data, err := runQuery("/query/asm", params)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	cmd.Flags().StringVar(&function, "function", "", "function name or substring pattern (required)")
	_ = cmd.MarkFlagRequired("function")
	return cmd
}

func newDrilldownCmd() *cobra.Command {
	var (
		function  string
		depth     int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "drilldown",
		Short: "Walk the hottest callee chain starting from a function",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("function", function)
			if depth > 0 {
				params.Set("depth", strconv.Itoa(depth))
			}
			if threshold > 0 {
				params.Set("threshold", strconv.FormatFloat(threshold, 'f', -1, 64))
			}
			data, err := runQuery("/query/drilldown", params)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	cmd.Flags().StringVar(&function, "function", "", "function name or substring pattern (required)")
	cmd.Flags().IntVar(&depth, "depth", 10, "maximum drilldown depth")
	cmd.Flags().Float64Var(&threshold, "threshold", 5.0, "self-time percent above which a node is a bottleneck")
	_ = cmd.MarkFlagRequired("function")
	return cmd
}
