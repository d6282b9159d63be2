// Package cart holds the draft order before submission. Pure in-memory state;
// no network calls happen here.
package cart

import (
	"fmt"

	"ordersync/internal/models"
)

// Line is one draft entry. Name and price are snapshotted at add time so a
// later catalog edit does not retroactively change an unsubmitted cart.
type Line struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	Comment     string `json:"comment,omitempty"`
}

// Subtotal is quantity times the snapshotted unit price.
func (l Line) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart keeps at most one line per product. Quantity never drops to zero or
// below while a line exists; a delta that would is a removal.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add merges a product into the cart: an existing line for the product gains
// one unit, otherwise a new line with quantity 1 is appended. Inactive
// products are not offered on the menu and are rejected.
func (c *Cart) Add(p models.Product) error {
	if !p.IsActive {
		return fmt.Errorf("%w: product %d is not available", models.ErrValidation, p.ID)
	}
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity++
			return nil
		}
	}
	c.lines = append(c.lines, Line{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.Price,
		Quantity:    1,
	})
	return nil
}

// ChangeQuantity applies delta to the line at index. A resulting quantity of
// zero or less removes the line. Out-of-range indices are no-ops.
func (c *Cart) ChangeQuantity(index, delta int) {
	if index < 0 || index >= len(c.lines) {
		return
	}
	c.lines[index].Quantity += delta
	if c.lines[index].Quantity <= 0 {
		c.Remove(index)
	}
}

// Remove deletes the line at index. Out-of-range indices are no-ops.
func (c *Cart) Remove(index int) {
	if index < 0 || index >= len(c.lines) {
		return
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
}

// SetComment attaches free text to the line at index.
func (c *Cart) SetComment(index int, text string) {
	if index < 0 || index >= len(c.lines) {
		return
	}
	c.lines[index].Comment = text
}

// Clear drops every line. Called after a successful submission.
func (c *Cart) Clear() {
	c.lines = nil
}

// Total is recomputed from the lines on every read, never cached.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// Lines returns a copy of the current draft.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Empty reports whether there is nothing to submit.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}
