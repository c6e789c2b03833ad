package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	defaultCategory    = "Classic Flavors"
	placeholderImage   = "/placeholder.svg"
	apiSuccessCode     = "200"
	defaultProductsAPI = "getProducts.php"
)

// ErrUpstream marks failures of the remote product API.
var ErrUpstream = errors.New("catalog: upstream unavailable")

// Doer executes HTTP requests. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Source supplies the raw product list.
type Source interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}

// RemoteSource reads products from the storefront admin panel API.
type RemoteSource struct {
	Client  Doer
	BaseURL string
	Path    string
}

type apiResponse struct {
	Code string       `json:"code"`
	Msg  string       `json:"msg"`
	Data []apiProduct `json:"Data"`
}

type apiProduct struct {
	PID         string           `json:"pid"`
	Title       string           `json:"title"`
	Status      string           `json:"status"`
	Type        string           `json:"type"`
	Image       string           `json:"image"`
	Cover       string           `json:"cover"`
	ProductData []apiProductSize `json:"product_data"`
}

type apiProductSize struct {
	ID     string `json:"id"`
	Size   string `json:"size"`
	MRP    string `json:"mrp"`
	Price  string `json:"price"`
	Status string `json:"status"`
}

// FetchProducts calls the remote API and transforms the payload.
func (s RemoteSource) FetchProducts(ctx context.Context) ([]Product, error) {
	if s.Client == nil || strings.TrimSpace(s.BaseURL) == "" {
		return nil, fmt.Errorf("remote source not configured: %w", ErrUpstream)
	}
	path := s.Path
	if strings.TrimSpace(path) == "" {
		path = defaultProductsAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(s.BaseURL, path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch products: status %d: %w", resp.StatusCode, ErrUpstream)
	}
	return decodeProducts(resp.Body)
}

func decodeProducts(r io.Reader) ([]Product, error) {
	var payload apiResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode products: %w: %w", ErrUpstream, err)
	}
	if payload.Code != apiSuccessCode {
		return nil, fmt.Errorf("products api code %q: %w", payload.Code, ErrUpstream)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("products api returned no data: %w", ErrUpstream)
	}
	products := make([]Product, 0, len(payload.Data))
	for _, p := range payload.Data {
		products = append(products, transformProduct(p))
	}
	return products, nil
}

func transformProduct(p apiProduct) Product {
	category := p.Type
	if category == "" {
		category = defaultCategory
	}
	image := p.Image
	if image == "" {
		image = placeholderImage
	}
	product := Product{
		ID:          p.PID,
		Name:        p.Title,
		Category:    category,
		Description: fmt.Sprintf("Delicious %s ice cream", p.Title),
		Image:       image,
		Cover:       p.Cover,
	}
	if len(p.ProductData) == 0 {
		product.Sizes = []ProductSize{{Size: "Regular", Price: decimal.Zero}}
		return product
	}
	product.Sizes = make([]ProductSize, 0, len(p.ProductData))
	for _, sd := range p.ProductData {
		size := ProductSize{Size: sd.Size}
		if price, ok := parseLeadingInt(sd.Price); ok {
			size.Price = decimal.NewFromInt(price)
		}
		if mrp, ok := parseLeadingInt(sd.MRP); ok {
			v := decimal.NewFromInt(mrp)
			size.MRP = &v
		}
		product.Sizes = append(product.Sizes, size)
	}
	return product
}

// parseLeadingInt reads an optionally signed base-10 integer prefix, ignoring
// leading whitespace and any trailing characters ("550.00" reads as 550).
func parseLeadingInt(value string) (int64, bool) {
	s := strings.TrimLeft(value, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
