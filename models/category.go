package models

// Category represents a recognized data class for predicate requests
type Category string

const (
	CategorySubscription Category = "subscription"
	CategoryDelivery     Category = "delivery"
	CategoryPurchase     Category = "purchase"
	CategoryFinancial    Category = "financial"
)

// Categories returns all recognized categories
func Categories() []Category {
	return []Category{
		CategorySubscription,
		CategoryDelivery,
		CategoryPurchase,
		CategoryFinancial,
	}
}

// Valid reports whether the category is one of the recognized data classes.
// Unrecognized categories are denied, not erred (closed world).
func (c Category) Valid() bool {
	switch c {
	case CategorySubscription, CategoryDelivery, CategoryPurchase, CategoryFinancial:
		return true
	}
	return false
}

// String returns the category as a string
func (c Category) String() string {
	return string(c)
}

// DefaultBasePrice returns the default per-category base price, used when the
// policy does not override it.
func (c Category) DefaultBasePrice() float64 {
	switch c {
	case CategorySubscription:
		return 0.05
	case CategoryDelivery:
		return 0.10
	case CategoryPurchase:
		return 0.25
	case CategoryFinancial:
		return 0.50
	}
	return 0
}
