package types

import "strings"

// Address is the delivery address snapshot stored on each order. It is
// serialized to jsonb and never re-resolved against the buyer's saved
// addresses after order time.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// Validate reports the first missing field, or "" when fully populated.
func (a Address) Validate() string {
	switch {
	case strings.TrimSpace(a.Street) == "":
		return "street"
	case strings.TrimSpace(a.City) == "":
		return "city"
	case strings.TrimSpace(a.State) == "":
		return "state"
	case strings.TrimSpace(a.PostalCode) == "":
		return "postal_code"
	case strings.TrimSpace(a.Phone) == "":
		return "phone"
	}
	return ""
}

// JSONMap holds loosely structured metadata persisted as jsonb.
type JSONMap map[string]any
