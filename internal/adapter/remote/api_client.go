package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/port"
)

// APIClient reads stock and product records from the storefront API:
//
//	GET {base}/stock/{id}    -> {"id": 1, "amount": 3}
//	GET {base}/products/{id} -> {"id": 1, "title": "...", "price": 179.9, "image": "..."}
type APIClient struct {
	baseURL *url.URL
	http    *http.Client
}

// StatusError reports a response other than 200 or 404.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.Path, e.Status)
}

func NewAPIClient(baseURL string, timeout time.Duration) (*APIClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}

	return &APIClient{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *APIClient) Stock(ctx context.Context, productID int) (domain.Stock, error) {
	var stock domain.Stock
	if err := c.getJSON(ctx, "stock/"+strconv.Itoa(productID), &stock); err != nil {
		return domain.Stock{}, err
	}
	stock.ProductID = productID
	return stock, nil
}

func (c *APIClient) Product(ctx context.Context, productID int) (domain.Product, error) {
	var product domain.Product
	if err := c.getJSON(ctx, "products/"+strconv.Itoa(productID), &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (c *APIClient) getJSON(ctx context.Context, path string, dest any) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, port.ErrNotFound)
	default:
		return &StatusError{Path: path, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
