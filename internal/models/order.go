package models

type OrderStatus string

// Order lifecycle is one-directional: unaccepted -> accepted -> completed.
// The backend stores the localized labels, so they are the wire values.
const (
	OrderStatusUnaccepted OrderStatus = "未接單"
	OrderStatusAccepted   OrderStatus = "接單"
	OrderStatusCompleted  OrderStatus = "已完成"
)

// Order is one buyer purchase request as served by the backend.
type Order struct {
	ID         int         `json:"id"`
	BuyerID    int         `json:"buyer_id,omitempty"`
	BuyerName  string      `json:"buyer_name,omitempty"`
	Service    string      `json:"service"`
	Status     OrderStatus `json:"order_status"`
	IsUrgent   bool        `json:"is_urgent"`
	TotalPrice float64     `json:"total_price"`
	// Timestamp is ISO-8601, set on creation and on each transition.
	// Historic rows can miss it entirely.
	Timestamp string `json:"timestamp,omitempty"`
	Location  string `json:"location,omitempty"`
	Items     []Item `json:"items"`
	Note      string `json:"note,omitempty"`
}

// Item is a line within an order. Items of one order may come from
// different pickup locations.
type Item struct {
	Name     string  `json:"item_name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
	Location string  `json:"location,omitempty"`
}
