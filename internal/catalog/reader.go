package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"pressing_chatbot_backend/platform/apperr"
)

// Reader loads the price list from a local JSON file. The file is re-read
// on every call so a catalogue update never requires a restart.
type Reader struct {
	path string
}

// NewReader creates a Reader for the given catalogue file path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadCatalog returns all catalogue items. A missing or malformed file is a
// CatalogUnavailable error (KindUnavailable): pricing paths must propagate it,
// display-only paths may degrade to an empty listing via ReadCatalogLenient.
func (r *Reader) ReadCatalog(_ context.Context) ([]Item, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Wrap(apperr.KindUnavailable, "catalogue indisponible", err).WithOp("catalog.ReadCatalog")
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "lecture du catalogue impossible", err).WithOp("catalog.ReadCatalog")
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "catalogue illisible", err).WithOp("catalog.ReadCatalog")
	}
	return items, nil
}

// ReadCatalogLenient returns the catalogue or an empty slice when the backing
// file is unavailable. Only for display paths; never price an order from it.
func (r *Reader) ReadCatalogLenient(ctx context.Context) []Item {
	items, err := r.ReadCatalog(ctx)
	if err != nil {
		return []Item{}
	}
	return items
}
