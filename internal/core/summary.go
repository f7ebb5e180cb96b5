package core

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Summary renders the user-facing report for a filtered conversion.
func Summary(f Filtered) string {
	retained := 0
	if f.Retained != nil {
		retained = f.Retained.Len()
	}
	if len(f.Rejected) == 0 {
		return fmt.Sprintf("All %d rows were converted successfully.", retained)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d rows converted successfully. Illegal rows were:\n\n", retained)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Action\tNumber of rows\tRow Index")
	for _, r := range f.Rejected {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", displayLabel(r.Label), r.Count, joinInts(r.Rows))
	}
	tw.Flush()

	return strings.TrimRight(b.String(), "\n")
}

func displayLabel(l string) string {
	if l == "" {
		return "(empty)"
	}
	return l
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
