// Package templates holds the HTML page and the HTMX fragments as templ
// components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Choice is one option of a select or radio group.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options lists what the forms offer. It is also served as JSON.
type Options struct {
	Extensions  []string `json:"extensions"`
	Encodings   []Choice `json:"encodings"`
	Delimiters  []Choice `json:"delimiters"`
	Keep        []Choice `json:"keep"`
	MaxFileSize int64    `json:"max_file_size"`
}

// html accumulates writes to w and keeps the first error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes s escaped.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// rawf formats with every argument escaped.
func (h *html) rawf(format string, args ...any) {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = templ.EscapeString(fmt.Sprint(a))
	}
	h.raw(fmt.Sprintf(format, escaped...))
}

func (h *html) render(c templ.Component) {
	if h.err == nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

// component adapts a body writer to templ.Component.
func component(body func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{ctx: ctx, w: w}
		body(h)
		return h.err
	})
}

// ErrorAlert renders a user-facing error box for HTMX swaps.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(h *html) {
		h.raw(`<div class="alert alert-error" role="alert">`)
		h.rawf(`<p class="alert-message">%s</p>`, message)
		if action != "" {
			h.rawf(`<p class="alert-action">%s</p>`, action)
		}
		if code != "" {
			h.rawf(`<p class="alert-code">Code: %s</p>`, code)
		}
		h.raw(`</div>`)
	})
}
