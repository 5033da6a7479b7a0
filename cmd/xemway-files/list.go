package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xemway/xemway-files/internal/query"
	"github.com/xemway/xemway-files/pkg/client"
	"github.com/xemway/xemway-files/pkg/cursor"
	"github.com/xemway/xemway-files/pkg/filter"
)

var (
	listContains []string
	listFilters  []string
	listLogic    string
	listOffset   int
	listLimit    int
	listJQ       string
	listMaxVals  int
	listJSON     bool

	listCmd = &cobra.Command{
		Use:   "list DEVICE",
		Short: "List a device's session files",
		Long: `List the session files recorded by DEVICE.

--contains matches session names. --filter takes field:operator:value
predicates, e.g. size:gt:1024; numeric values are sent as numbers.
All predicates are combined with --logic (and by default).`,
		Args: cobra.ExactArgs(1),
		RunE: runList,
	}
)

func init() {
	f := listCmd.Flags()
	f.StringArrayVar(&listContains, "contains", nil, "session_name substring (repeatable)")
	f.StringArrayVar(&listFilters, "filter", nil, "field:operator:value predicate (repeatable)")
	f.StringVar(&listLogic, "logic", "and", "how predicates combine: and or or")
	f.IntVar(&listOffset, "offset", 0, "index of the first record to print")
	f.IntVar(&listLimit, "limit", 0, "max records to print (0 = all)")
	f.StringVar(&listJQ, "jq", "", "jq expression applied to each record")
	f.IntVar(&listMaxVals, "max-values", 0, "stop after this many jq results (0 = all)")
	f.BoolVar(&listJSON, "json", false, "print records as JSON lines")
}

func runList(cmd *cobra.Command, args []string) error {
	tree, err := parseFilters(listLogic, listContains, listFilters)
	if err != nil {
		return err
	}
	jq := query.NewEngine()
	if listJQ != "" {
		if err := jq.ValidateExpression(listJQ); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	sess, err := login(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	cur := sess.DeviceFileCursor(args[0],
		cursor.WithPageSize(cfg.PageSize),
		cursor.WithPageCache(cfg.PageCacheMaxItems),
		cursor.WithFetchTimeout(cfg.FetchTimeout),
	)
	if err := cur.Init(ctx, tree); err != nil {
		return err
	}

	count, _ := cur.Count()
	fmt.Fprintf(cmd.ErrOrStderr(), "%d session files on %s\n", count, args[0])
	if count == 0 {
		return nil
	}
	if listOffset > 0 {
		if _, err := cur.Seek(ctx, listOffset); err != nil {
			return err
		}
	}

	var files []client.SessionFile
	for item, err := range cur.All(ctx) {
		if err != nil {
			return err
		}
		files = append(files, item)
		if listLimit > 0 && len(files) == listLimit {
			break
		}
	}

	out := cmd.OutOrStdout()
	switch {
	case listJQ != "":
		return printJQ(out, cmd.ErrOrStderr(), jq, files)
	case listJSON:
		enc := json.NewEncoder(out)
		for _, f := range files {
			if err := enc.Encode(f); err != nil {
				return err
			}
		}
		return nil
	}
	return printTable(out, files)
}

// parseFilters builds the session filter from the command-line predicates.
func parseFilters(logic string, contains, predicates []string) (filter.Node, error) {
	var nodes []filter.Node
	for _, s := range contains {
		nodes = append(nodes, filter.New("session_name", "contains", s))
	}
	for _, p := range predicates {
		parts := strings.SplitN(p, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid --filter %q: want field:operator:value", p)
		}
		nodes = append(nodes, parseLeaf(parts[0], parts[1], parts[2]))
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	switch strings.ToLower(logic) {
	case "and":
		return filter.And(nodes...), nil
	case "or":
		return filter.Or(nodes...), nil
	}
	return nil, fmt.Errorf("invalid --logic %q: want and or or", logic)
}

func parseLeaf(field, op, value string) filter.Filter {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return filter.New(field, op, i)
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return filter.New(field, op, f)
	}
	return filter.New(field, op, value)
}

func printTable(w io.Writer, files []client.SessionFile) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tDEVICE\tCREATED\tSIZE")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", f.SessionID(), f.DeviceName, f.CreatedAt, f.Size)
	}
	return tw.Flush()
}

func printJQ(w, errW io.Writer, e *query.Engine, files []client.SessionFile) error {
	records := make([]any, len(files))
	labels := make([]string, len(files))
	for i, f := range files {
		records[i] = f
		labels[i] = f.SessionID()
	}
	res, err := e.Query(records, labels, listJQ, query.Options{MaxResults: listMaxVals})
	if err != nil {
		return err
	}
	for _, msg := range res.Errors {
		fmt.Fprintln(errW, msg)
	}

	enc := json.NewEncoder(w)
	for _, v := range res.Values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
