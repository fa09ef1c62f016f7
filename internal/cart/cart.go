// Package cart holds the in-memory shopping cart of a single session.
package cart

import "vapestore/internal/model"

// Item is a cart line: a product and how many units of it.
type Item struct {
	Product  model.Product `json:"product"`
	Quantity int           `json:"quantity"`
}

// Cart is an ordered collection of items with at most one entry per product.
// It is not safe for concurrent use; callers serialize access per session.
type Cart struct {
	items []Item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

func (c *Cart) indexOf(productID int) int {
	for i, it := range c.items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of product into the cart, incrementing the existing
// entry if the product is already present.
func (c *Cart) Add(product model.Product) {
	if i := c.indexOf(product.ID); i >= 0 {
		c.items[i].Quantity++
		return
	}
	c.items = append(c.items, Item{Product: product.Clone(), Quantity: 1})
}

// UpdateQuantity sets the quantity of a product. A quantity of zero or less
// removes the entry. Unknown products are ignored.
func (c *Cart) UpdateQuantity(productID, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	if i := c.indexOf(productID); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

// Remove deletes the entry for a product. Removing an absent product is a no-op.
func (c *Cart) Remove(productID int) {
	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// ItemCount is the total number of units across all entries.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Total is the sum of price times quantity.
func (c *Cart) Total() model.Money {
	var total model.Money
	for _, it := range c.items {
		total += it.Product.Price.Times(it.Quantity)
	}
	return total
}

// IsEmpty reports whether the cart has no entries.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Items returns a copy of the entries in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Names lists the product names in the cart.
func (c *Cart) Names() []string {
	names := make([]string, 0, len(c.items))
	for _, it := range c.items {
		names = append(names, it.Product.Name)
	}
	return names
}

// Snapshot copies the cart into order items. Later catalog or cart changes
// never affect the returned slice.
func (c *Cart) Snapshot() []model.OrderItem {
	out := make([]model.OrderItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, model.OrderItem{
			Product:  it.Product.Clone(),
			Quantity: it.Quantity,
		})
	}
	return out
}
