package templates

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// htmxConfig makes 4xx/5xx fragments swap too; the server retargets them
// to #errors.
const htmxConfig = `{"responseHandling":[{"code":"204","swap":false},{"code":"[23]..","swap":true},{"code":"[45]..","swap":true,"error":true}]}`

const styles = `
body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:72rem;padding:0 1rem;color:#1f2933}
form{margin:1rem 0;display:flex;flex-wrap:wrap;gap:.75rem;align-items:center}
fieldset{border:1px solid #cbd2d9;padding:.5rem 1rem}
table{border-collapse:collapse;font-size:.875rem;margin:.5rem 0}
th,td{border:1px solid #e4e7eb;padding:.25rem .5rem;text-align:left}
th{background:#f5f7fa}
.null{color:#9aa5b1}
.alert-error{border:1px solid #e12d39;background:#ffe3e3;padding:.75rem 1rem;margin:1rem 0}
.counts{font-weight:600}
`

// IndexPage is the upload page. The session fragment is swapped into #session.
func IndexPage(opts Options) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.rawf(`<meta name="htmx-config" content="%s">`, htmxConfig)
		h.raw(`<title>Sans doublons</title>`)
		h.raw(`<script src="https://unpkg.com/htmx.org@2.0.4" defer></script>`)
		h.raw(`<style>` + styles + `</style></head><body>`)

		h.raw(`<h1>Sans doublons</h1>`)
		h.raw(`<p>Load a spreadsheet or CSV file, choose which columns define a duplicate, then download the cleaned file.</p>`)

		h.raw(`<form hx-post="/api/sessions" hx-encoding="multipart/form-data" hx-target="#session" hx-swap="innerHTML">`)
		h.rawf(`<input type="file" name="file" accept="%s" required>`, strings.Join(opts.Extensions, ","))
		h.raw(`<button type="submit">Load file</button>`)
		if opts.MaxFileSize > 0 {
			h.rawf(`<small>Up to %s</small>`, formatBytes(opts.MaxFileSize))
		}
		h.raw(`</form>`)

		h.raw(`<div id="errors"></div><div id="session"></div>`)
		h.raw(`</body></html>`)
	})
}

func formatBytes(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit:
		return trimFloat(float64(n)/(unit*unit)) + " MB"
	case n >= unit:
		return trimFloat(float64(n)/unit) + " KB"
	}
	return trimFloat(float64(n)) + " bytes"
}

// trimFloat formats with one decimal and drops a trailing ".0".
func trimFloat(f float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(f, 'f', 1, 64), ".0")
}
