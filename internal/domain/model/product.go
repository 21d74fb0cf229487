package model

import "time"

type ProductType string

const (
	ProductTypeDefault ProductType = "default" // one lifetime purchase
	ProductTypeDaily   ProductType = "daily"   // repurchasable every 24h
	ProductTypeLadder  ProductType = "ladder"  // ordered chain, prev rung must be paid
)

// Product is a catalog entry. Prev/Next hold slugs and form the ladder chain
// for ladder products. Price == nil means the price is computed dynamically
// from the buyer's quota record at invoice time.
type Product struct {
	ID          string      `json:"id"` // UUID
	Slug        string      `json:"slug"` // stable key, unique
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Type        ProductType `json:"type"`
	Price       *int64      `json:"price,omitempty"` // in Stars; nil = dynamic pricing
	Prev        *string     `json:"prev,omitempty"`  // slug of the previous ladder rung
	Next        *string     `json:"next,omitempty"`  // slug of the next ladder rung
	Effects     []Effect    `json:"effects,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// HasStaticPrice reports whether the catalog carries a fixed price.
func (p *Product) HasStaticPrice() bool { return p.Price != nil }

// StoreProduct is the catalog entry annotated for the mini-app store view.
type StoreProduct struct {
	Product
	// ResolvedPrice is the price the buyer would actually pay right now:
	// the static price, or the dynamic one computed from their quota.
	ResolvedPrice int64 `json:"price"`
	CanBuy        bool  `json:"canBuy"`
	// FullyPurchased marks an exhausted ladder chain (last rung paid, no next).
	FullyPurchased bool       `json:"fullyPurchased,omitempty"`
	PaidAt         *time.Time `json:"payedAt,omitempty"`
}
