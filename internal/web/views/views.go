// Package views renders the HTML pages of the web UI as templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// SchemaRow is one supported or recognized export format.
type SchemaRow struct {
	Key       string
	Exchange  string
	Label     string
	Supported bool
}

// IndexData feeds the upload page.
type IndexData struct {
	Schemas        []SchemaRow
	MaxFileSize    int64
	HistoryEnabled bool
}

// RejectionRow is one group of dropped rows on the report page.
type RejectionRow struct {
	Label string
	Count int
	Rows  string
}

// ReportData feeds the conversion report page.
type ReportData struct {
	ID         string
	File       string
	Exchange   string
	Schema     string
	Total      int
	Retained   int
	Rejections []RejectionRow
	Summary    string
	DurationMs int64
}

const style = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:60rem;color:#1f2937}
table{border-collapse:collapse;width:100%;margin:1rem 0}
th,td{border-bottom:1px solid #e5e7eb;padding:.4rem .6rem;text-align:left}
.alert{border:1px solid #fca5a5;background:#fef2f2;padding:1rem;border-radius:.4rem}
.muted{color:#6b7280}
pre{background:#f3f4f6;padding:1rem;overflow-x:auto}`

// Page wraps body in the site layout.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		p.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		p.raw("<title>").text(title).raw(" - coinconvert</title>")
		p.raw("<style>").raw(style).raw("</style></head><body>")
		p.raw("<header><h1><a href=\"/\">coinconvert</a></h1></header><main>")
		if p.err != nil {
			return p.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		p.raw("</main></body></html>")
		return p.err
	})
}

// Index is the upload form and the list of known formats.
func Index(d IndexData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw("<section><h2>Convert an export</h2>")
		p.raw("<p class=\"muted\">CSV or XLSX, up to ").text(humanBytes(d.MaxFileSize)).raw(".</p>")
		p.raw("<form method=\"post\" action=\"/convert\" enctype=\"multipart/form-data\">")
		p.raw("<input type=\"file\" name=\"file\" accept=\".csv,.xlsx\" required> ")
		p.raw("<button type=\"submit\">Show report</button> ")
		p.raw("<button type=\"submit\" formaction=\"/api/convert\" name=\"format\" value=\"csv\">Download CSV</button>")
		p.raw("</form></section>")

		p.raw("<section><h2>Supported formats</h2><table><thead><tr>")
		p.raw("<th>Exchange</th><th>Export</th><th>Key</th><th>Status</th></tr></thead><tbody>")
		for _, s := range d.Schemas {
			status := "supported"
			if !s.Supported {
				status = "recognized, not supported"
			}
			p.raw("<tr><td>").text(s.Exchange).raw("</td><td>").text(s.Label).
				raw("</td><td><code>").text(s.Key).raw("</code></td><td>").text(status).raw("</td></tr>")
		}
		p.raw("</tbody></table></section>")
		if d.HistoryEnabled {
			p.raw("<p class=\"muted\">Recent conversions: <a href=\"/api/history\">/api/history</a></p>")
		}
		return p.err
	})
}

// Report shows the outcome of a conversion.
func Report(d ReportData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw("<section><h2>").text(d.File).raw("</h2>")
		p.raw("<p>").text(d.Exchange)
		if d.Schema != "" {
			p.raw(" <code>").text(d.Schema).raw("</code>")
		}
		p.raw("</p><p>").text(d.Summary).raw("</p>")
		if len(d.Rejections) > 0 {
			p.raw("<table><thead><tr><th>Action</th><th>Number of rows</th><th>Row Index</th></tr></thead><tbody>")
			for _, r := range d.Rejections {
				p.raw("<tr><td>").text(r.Label).raw("</td><td>").text(strconv.Itoa(r.Count)).
					raw("</td><td>").text(r.Rows).raw("</td></tr>")
			}
			p.raw("</tbody></table>")
		}
		p.raw("<p class=\"muted\">").text(strconv.Itoa(d.Retained)).raw(" of ").text(strconv.Itoa(d.Total)).
			raw(" rows kept in ").text(strconv.FormatInt(d.DurationMs, 10)).raw(" ms. Run ").
			text(d.ID).raw("</p>")
		p.raw("<p><a href=\"/\">Convert another file</a></p></section>")
		return p.err
	})
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw("<div class=\"alert\" role=\"alert\"><strong>").text(message).raw("</strong>")
		if action != "" {
			p.raw("<p>").text(action).raw("</p>")
		}
		if code != "" {
			p.raw("<p class=\"muted\">Code: ").text(code).raw("</p>")
		}
		p.raw("<p><a href=\"/\">Back</a></p></div>")
		return p.err
	})
}

// printer writes markup and keeps the first error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) *printer {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
	return p
}

func (p *printer) text(s string) *printer {
	return p.raw(templ.EscapeString(s))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/float64(div)), ".0") + " " + string("KMGTPE"[exp]) + "B"
}
