package models

// Driver is a registered driver identity, linked 1:1 to a user.
type Driver struct {
	ID        int    `json:"id"`
	UserID    int    `json:"user_id"`
	Name      string `json:"driver_name"`
	Phone     string `json:"driver_phone"`
	Direction string `json:"direction,omitempty"`
	Available string `json:"available_date,omitempty"`
}

// DriverOrderAction is the audit record sent alongside a lifecycle
// transition. The client only ever writes these.
type DriverOrderAction struct {
	DriverID            int     `json:"driver_id"`
	OrderID             int     `json:"order_id"`
	Action              string  `json:"action"`
	Timestamp           string  `json:"timestamp"`
	PreviousDriverID    *int    `json:"previous_driver_id,omitempty"`
	PreviousDriverName  *string `json:"previous_driver_name,omitempty"`
	PreviousDriverPhone *string `json:"previous_driver_phone,omitempty"`
	Service             string  `json:"service"`
}

// ActionAccept is the action label the backend expects on an accept record.
const ActionAccept = "接單"
