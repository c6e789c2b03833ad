package catalog

import (
	"bytes"
	"context"
	"embed"
)

//go:embed fallback/*.json
var fallbackFS embed.FS

var fallbackFiles = []string{"fallback/icecream.json", "fallback/cone_candy.json"}

// StaticSource serves the bundled product list used when the remote API is down.
type StaticSource struct{}

// FetchProducts decodes the embedded ice cream and cone candy payloads.
func (StaticSource) FetchProducts(_ context.Context) ([]Product, error) {
	var products []Product
	for _, name := range fallbackFiles {
		data, err := fallbackFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		decoded, err := decodeProducts(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		products = append(products, decoded...)
	}
	return products, nil
}
