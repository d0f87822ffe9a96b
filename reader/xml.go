package reader

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/pkg/errors"

	"github.com/omniscale/osm3d/graph"
)

// ctxCheckInterval is the number of tokens between context checks.
const ctxCheckInterval = 1024

// ReadXML streams an OSM XML document into b. The builder is closed at the
// end of the document, so the last way is handled before ReadXML returns.
func ReadXML(ctx context.Context, r io.Reader, b *graph.Builder) error {
	decoder := xml.NewDecoder(r)

	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		token, err := decoder.Token()
		if err == io.EOF {
			return b.Close()
		}
		if err != nil {
			return &graph.DocumentError{Offset: decoder.InputOffset(), Msg: err.Error()}
		}

		tok, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if err := b.Start(tok); err != nil {
			var docErr *graph.DocumentError
			if errors.As(err, &docErr) && docErr.Offset < 0 {
				docErr.Offset = decoder.InputOffset()
			}
			return err
		}
	}
}
