package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category classifies catalog products.
type Category int

const (
	CategoryFood Category = iota
	CategoryDrink
	CategoryDessert
)

var categoryNames = map[Category]string{
	CategoryFood:    "FOOD",
	CategoryDrink:   "DRINK",
	CategoryDessert: "DESSERT",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CATEGORY(%d)", int(c))
}

// UnmarshalJSON accepts the upstream's numeric form as well as the name.
func (c *Category) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = Category(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid category: %s", string(data))
	}
	for cat, name := range categoryNames {
		if strings.EqualFold(s, name) {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown category: %q", s)
}

// Product is a catalog record. The engine only reads products; the catalog
// collaborator owns them.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"` // cents
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"isActive"`
	Category    Category  `json:"category"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OrderLine is a price/quantity snapshot captured at submission time. It never
// changes after the order is created.
type OrderLine struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"price"`
	LineTotal   int64  `json:"subtotal"`
}

// Order is the server-authoritative record. Only Status mutates post-creation.
type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"userId"`
	UserName  string      `json:"userName"`
	Lines     []OrderLine `json:"items"`
	Total     int64       `json:"total"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Validate checks the construction invariant: the order total equals the sum
// of its line totals, and every line total matches quantity times unit price.
func (o *Order) Validate() error {
	var sum int64
	for i, line := range o.Lines {
		if line.Quantity < 1 {
			return fmt.Errorf("order %d line %d: non-positive quantity %d", o.ID, i, line.Quantity)
		}
		if want := line.UnitPrice * int64(line.Quantity); line.LineTotal != want {
			return fmt.Errorf("order %d line %d: line total %d != %d", o.ID, i, line.LineTotal, want)
		}
		sum += line.LineTotal
	}
	if o.Total != sum {
		return fmt.Errorf("order %d: total %d != sum of lines %d", o.ID, o.Total, sum)
	}
	return nil
}

// Role of the current actor. Only used to pick push groups and visibility.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Actor identifies the session owner.
type Actor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
