// Package catalog holds the fixed product price list.
package catalog

// Product is a sellable item with its unit price.
type Product struct {
	Name  string
	Price int64
}

// Catalog is an immutable, ordered name -> price lookup.
type Catalog struct {
	products []Product
	index    map[string]int64
}

// New builds a catalog from products. Later duplicates are ignored.
func New(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[string]int64, len(products)),
	}
	for _, p := range products {
		if _, exists := c.index[p.Name]; exists {
			continue
		}
		c.index[p.Name] = p.Price
		c.products = append(c.products, p)
	}
	return c
}

// Default returns the demo product list.
func Default() *Catalog {
	return New([]Product{
		{Name: "MacBook", Price: 1},
		{Name: "iPhone", Price: 89},
		{Name: "Samsung Galaxy", Price: 45},
		{Name: "Sony WH", Price: 24},
		{Name: "Apple Watch", Price: 41},
	})
}

// Price returns the unit price for name.
func (c *Catalog) Price(name string) (int64, bool) {
	price, ok := c.index[name]
	return price, ok
}

// Products returns a copy of the list in insertion order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
