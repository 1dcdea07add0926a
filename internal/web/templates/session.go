package templates

import (
	"slices"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sansdoublons/internal/core"
	"github.com/JonMunkholm/sansdoublons/internal/ingest"
)

// SessionView is the fragment for one session: how the file was read, the
// sheet and re-read controls, the dedup form and the previews.
func SessionView(snap *core.Snapshot, opts Options) templ.Component {
	return component(func(h *html) {
		base := "/api/sessions/" + snap.ID

		h.rawf(`<section class="session" data-session="%s">`, snap.ID)
		// Clears any error left by an earlier request.
		h.raw(`<div id="errors" hx-swap-oob="true"></div>`)

		h.rawf(`<header><h2>%s</h2>`, snap.FileName)
		h.rawf(`<p>%d rows, %d columns</p>`, snap.Rows, len(snap.Columns))
		h.rawf(`<button type="button" hx-delete="%s" hx-target="#session">Discard</button>`, base)
		h.raw(`</header>`)

		if snap.Sheets != nil {
			h.render(sheetForm(base, snap.Sheets))
		}
		if snap.Text != nil {
			h.render(rereadForm(base, snap.Text, opts))
		}
		if len(snap.Columns) > 0 {
			h.render(dedupForm(base, snap, opts))
		}
		if snap.Preview != nil {
			h.render(PreviewTable("Loaded data", snap.Preview))
		}
		if snap.Result != nil {
			h.render(ResultView(base, snap.Result))
		}

		h.raw(`</section>`)
	})
}

func sheetForm(base string, sheets *ingest.SheetMetadata) templ.Component {
	return component(func(h *html) {
		h.rawf(`<form hx-post="%s/sheet" hx-target="#session">`, base)
		h.raw(`<label>Sheet <select name="sheet">`)
		for _, name := range sheets.Sheets {
			option(h, name, name, name == sheets.Selected)
		}
		h.raw(`</select></label><button type="submit">Load sheet</button></form>`)
	})
}

func rereadForm(base string, info *core.TextInfo, opts Options) templ.Component {
	return component(func(h *html) {
		h.rawf(`<p>Read as <strong>%s</strong>, delimiter <code>%s</code> (%s).</p>`,
			info.Encoding, info.Delimiter, info.Mode.Label())

		if len(info.Attempts) > 1 {
			h.rawf(`<details><summary>%d combinations tried</summary><ol>`, len(info.Attempts))
			for _, a := range info.Attempts {
				h.rawf(`<li>%s / <code>%s</code>`, a.Encoding, a.Delimiter.Label())
				if a.Err != "" {
					h.rawf(`: %s`, a.Err)
				}
				h.raw(`</li>`)
			}
			h.raw(`</ol></details>`)
		}

		h.rawf(`<form hx-post="%s/reread" hx-target="#session">`, base)
		h.raw(`<label>Encoding <select name="encoding">`)
		for _, c := range opts.Encodings {
			enc, err := ingest.ParseEncoding(c.Value)
			option(h, c.Value, c.Label, err == nil && enc == info.Encoding)
		}
		h.raw(`</select></label>`)
		h.raw(`<label>Delimiter <select name="delimiter">`)
		for _, c := range opts.Delimiters {
			d, err := ingest.ParseDelimiter(c.Value)
			option(h, c.Value, c.Label, err == nil && d == info.Mode)
		}
		h.raw(`</select></label><button type="submit">Read again</button></form>`)
	})
}

func dedupForm(base string, snap *core.Snapshot, opts Options) templ.Component {
	return component(func(h *html) {
		all, keep, trim := true, "first", false
		var selected []string
		if r := snap.Result; r != nil {
			all, keep, trim, selected = r.All, r.Keep, r.TrimSpace, r.Columns
		}

		h.rawf(`<form hx-post="%s/dedup" hx-target="#session">`, base)

		h.raw(`<fieldset><legend>Duplicates are rows equal on</legend>`)
		radio(h, "scope", "all", "all columns", all)
		radio(h, "scope", "columns", "the selected columns", !all)
		for _, c := range snap.Columns {
			h.raw(`<label><input type="checkbox" name="columns"`)
			h.rawf(` value="%s"`, c.Name)
			if slices.Contains(selected, c.Name) {
				h.raw(` checked`)
			}
			h.rawf(`> %s <small>(%s)</small></label>`, c.Name, c.Type)
		}
		h.raw(`</fieldset>`)

		h.raw(`<label>Keep <select name="keep">`)
		for _, c := range opts.Keep {
			option(h, c.Value, c.Label, c.Value == keep)
		}
		h.raw(`</select></label>`)

		h.raw(`<label><input type="checkbox" name="trim" value="true"`)
		if trim {
			h.raw(` checked`)
		}
		h.raw(`> Ignore leading and trailing spaces</label>`)

		h.raw(`<button type="submit">Remove duplicates</button></form>`)
	})
}

// ResultView shows the counts of the last dedup run with its download link.
func ResultView(base string, r *core.ResultInfo) templ.Component {
	return component(func(h *html) {
		h.raw(`<section class="result">`)
		h.rawf(`<p class="counts">%d rows before, %d after, %d duplicates removed.</p>`,
			r.RowsBefore, r.RowsAfter, r.Removed)
		h.rawf(`<p><a href="%s/download" download>Download %s</a></p>`, base, r.DownloadName)

		if r.Preview != nil {
			h.render(PreviewTable("Cleaned data", r.Preview))
		}
		if len(r.RemovedRows) > 0 && r.Preview != nil {
			h.render(RemovedTable(r.Preview.Columns, r.RemovedRows, r.Removed))
		}
		h.raw(`</section>`)
	})
}

// PreviewTable renders the first rows of a dataset.
func PreviewTable(title string, p *core.Preview) templ.Component {
	return component(func(h *html) {
		h.rawf(`<h3>%s</h3>`, title)
		if p.Truncated {
			h.rawf(`<p>Showing %d of %d rows.</p>`, len(p.Rows), p.Total)
		}
		h.raw(`<table><thead><tr>`)
		for _, c := range p.Columns {
			h.rawf(`<th>%s</th>`, c)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, row := range p.Rows {
			h.raw(`<tr>`)
			for _, v := range row {
				cell(h, v)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
	})
}

// RemovedTable lists dropped rows by their line in the loaded data.
func RemovedTable(columns []string, rows []core.RemovedRow, removed int) templ.Component {
	return component(func(h *html) {
		h.raw(`<details><summary>Removed rows`)
		if len(rows) < removed {
			h.rawf(` (first %d of %d)`, len(rows), removed)
		}
		h.raw(`</summary><table><thead><tr><th>Row</th>`)
		for _, c := range columns {
			h.rawf(`<th>%s</th>`, c)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, r := range rows {
			h.rawf(`<tr><td>%d</td>`, r.Line)
			for _, v := range r.Values {
				cell(h, v)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></details>`)
	})
}

func cell(h *html, v string) {
	if v == "" {
		h.raw(`<td class="null"></td>`)
		return
	}
	h.rawf(`<td>%s</td>`, v)
}

func option(h *html, value, label string, selected bool) {
	h.rawf(`<option value="%s"`, value)
	if selected {
		h.raw(` selected`)
	}
	h.rawf(`>%s</option>`, label)
}

func radio(h *html, name, value, label string, checked bool) {
	h.rawf(`<label><input type="radio" name="%s" value="%s"`, name, value)
	if checked {
		h.raw(` checked`)
	}
	h.rawf(`> %s</label>`, label)
}
