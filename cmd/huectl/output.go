package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
)

// render prints v as JSON, or calls table for the default format.
func render(w io.Writer, v any, table func(*tabwriter.Writer)) error {
	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal JSON")
		}
		_, err = fmt.Fprintln(w, string(data))
		return errors.Wrap(err, "failed to write output")
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		table(tw)
		return errors.Wrap(tw.Flush(), "failed to write output")
	default:
		return errors.Newf("unknown output format %q", outputFormat)
	}
}

// renderBatch prints the per-item outcome of a write. Failed items are
// reported but do not fail the command.
func renderBatch(w io.Writer, result *api.BatchResult) error {
	return render(w, result.Outcomes, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "#\tRESULT\tDETAIL")
		for _, o := range result.Outcomes {
			if o.OK() {
				fmt.Fprintf(tw, "%d\tok\t%s\n", o.Index, strings.TrimSpace(string(o.Success)))
				continue
			}
			fmt.Fprintf(tw, "%d\tfailed\t%s (type %d)\n", o.Index, o.Error.Description, o.Error.Type)
		}
	})
}

func onOff(v *bool) string {
	switch {
	case v == nil:
		return "-"
	case *v:
		return "on"
	default:
		return "off"
	}
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
