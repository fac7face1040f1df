package http

import (
	"bytes"
	"context"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
)

// renderComponent materialises a page into a byte slice so the handler can
// pick the status code after rendering succeeded. Streaming straight to the
// response would lock in a 200 before a template failure surfaces.
func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "rendering page")
	}
	return buf.Bytes(), nil
}
