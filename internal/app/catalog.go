package app

import (
	"context"

	"github.com/abgdnv/cartwish/internal/cart"
	catalogstore "github.com/abgdnv/cartwish/internal/catalog/store"
	"github.com/google/uuid"
)

// catalogReader exposes the catalog products to the cart in the shape the cart needs.
type catalogReader struct {
	products catalogstore.ProductStore
}

func newCatalogReader(products catalogstore.ProductStore) *catalogReader {
	return &catalogReader{products: products}
}

// FindProduct returns ErrProductNotFound from the store unchanged.
func (c *catalogReader) FindProduct(ctx context.Context, id uuid.UUID) (*cart.Product, error) {
	p, err := c.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var image string
	if len(p.Images) > 0 {
		image = p.Images[0]
	}
	return &cart.Product{ID: p.ID, Title: p.Title, Price: p.Price, Stock: p.Stock, Image: image}, nil
}
