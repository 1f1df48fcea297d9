package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
)

// BaseAdapter wraps a clients.Client so every call returns a body only for
// 2xx responses and a *domain.NetworkError otherwise.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a base adapter for the named remote.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{client: client, serviceName: serviceName}
}

// ServiceName returns the remote's name as used in errors and health output.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// Get performs a GET and returns the body of a 2xx response. The caller closes it.
func (a *BaseAdapter) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	return a.checked(a.client.Get(ctx, path))
}

// Post performs a POST and returns the body of a 2xx response. The caller closes it.
func (a *BaseAdapter) Post(ctx context.Context, path string, body io.Reader) (io.ReadCloser, error) {
	return a.checked(a.client.Post(ctx, path, body))
}

func (a *BaseAdapter) checked(resp *http.Response, err error) (io.ReadCloser, error) {
	if mapped := MapHTTPError(resp, err, a.serviceName); mapped != nil {
		if resp != nil {
			drainAndClose(resp.Body)
		}

		return nil, mapped
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body into T and closes it.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, errors.New("response body is nil")
	}
	defer drainAndClose(body)

	var result T
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// drainAndClose lets the transport reuse the connection.
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// Translator converts one external DTO into a domain value.
type Translator[External any, Domain any] func(ext *External) Domain

// TranslateSlice applies translate to every item, preserving order.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) []D {
	result := make([]D, 0, len(items))

	for i := range items {
		result = append(result, translate(&items[i]))
	}

	return result
}
