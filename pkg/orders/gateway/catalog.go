// Package gateway holds the HTTP clients the orchestrator uses to talk to
// the other services. Calls are blocking with a bounded timeout; a timeout is
// a hard failure of that call, never retried here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"shop/pkg/orders/domain/model"
)

const defaultTimeout = 5 * time.Second

type CatalogClient struct {
	baseURL string
	client  *http.Client
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CatalogClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *CatalogClient) Product(ctx context.Context, id int64) (*model.ProductSnapshot, error) {
	url := fmt.Sprintf("%s/products/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build product request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch product %d", id)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("catalog responded %d for product %d", resp.StatusCode, id)
	}

	var snapshot model.ProductSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, errors.Wrapf(err, "decode product %d", id)
	}
	return &snapshot, nil
}

// SetStock writes an absolute stock level computed by the caller.
func (c *CatalogClient) SetStock(ctx context.Context, id int64, quantity int) error {
	body, err := json.Marshal(map[string]int{"quantity": quantity})
	if err != nil {
		return errors.Wrap(err, "encode stock update")
	}

	url := fmt.Sprintf("%s/products/%d/stock", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build stock request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "update stock for product %d", id)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("catalog responded %d for stock update of product %d", resp.StatusCode, id)
	}
	return nil
}
