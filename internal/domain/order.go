package domain

import "time"

// Order is a priced purchase of a single catalog product.
type Order struct {
	ID           int64
	ExternalID   string
	SessionToken string
	ProductName  string
	Quantity     int
	UnitPrice    int64
	TotalPrice   int64
	CreatedAt    time.Time
}
