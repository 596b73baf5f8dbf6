package catalog

import (
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultTotal    = 5000
	DefaultPageSize = 60
)

// Catalog is a fixed, in-memory product list served page by page.
type Catalog struct {
	products []domain.Product
}

// Demo builds a catalog of total synthetic products. Product i (1-based) is
// named "Item i" and priced ((i-1)%100+1)*5.
func Demo(total int) *Catalog {
	products := make([]domain.Product, total)
	for i := range products {
		p := decimal.NewFromInt(int64((i%100)+1) * 5)
		products[i] = domain.Product{
			ID:    int64(i + 1),
			Name:  fmt.Sprintf("Item %d", i+1),
			Price: &p,
		}
	}
	return &Catalog{products: products}
}

// Page returns the first page*size products, mirroring an infinitely
// scrolling list. Pages start at 1.
func (c *Catalog) Page(page, size int) (items []domain.Product, hasMore bool) {
	if page < 1 || size < 1 {
		return []domain.Product{}, len(c.products) > 0
	}
	// compare by page count so page*size cannot overflow
	if page > (len(c.products)+size-1)/size {
		return c.products, false
	}
	end := page * size
	if end >= len(c.products) {
		return c.products, false
	}
	return c.products[:end], true
}

// Get looks a product up by id.
func (c *Catalog) Get(id int64) (domain.Product, bool) {
	if id < 1 || id > int64(len(c.products)) {
		return domain.Product{}, false
	}
	// ids are dense and 1-based
	return c.products[id-1], true
}

// Len returns the number of products in the catalog
func (c *Catalog) Len() int {
	return len(c.products)
}
