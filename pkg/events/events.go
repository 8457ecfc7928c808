package events

import (
	"time"
)

// Channel identifies the topic an event is published and subscribed on
type Channel string

const (
	ChannelOrderStatusChanged     Channel = "order_status_changed"
	ChannelOrderCreated           Channel = "order_created"
	ChannelOrderItemStatusChanged Channel = "order_item_status_changed"
	ChannelKitchenNotification    Channel = "kitchen_notification"
	ChannelRestaurantNotification Channel = "restaurant_notification"
	ChannelPaymentCompleted       Channel = "payment_completed"
	ChannelTableStatusChanged     Channel = "table_status_changed"
)

// AllChannels returns the complete, fixed channel registry. Subscribers
// always subscribe to this full set; partial subscription across a
// reconnect is a correctness bug.
func AllChannels() []Channel {
	return []Channel{
		ChannelOrderStatusChanged,
		ChannelOrderCreated,
		ChannelOrderItemStatusChanged,
		ChannelKitchenNotification,
		ChannelRestaurantNotification,
		ChannelPaymentCompleted,
		ChannelTableStatusChanged,
	}
}

// Event is the closed union of everything that travels over a channel.
// Every variant carries the tenant (restaurant) id and a millisecond
// timestamp. Events are immutable once constructed.
type Event interface {
	Channel() Channel
	Restaurant() string
	OccurredAt() int64

	// sealed keeps the union closed to this package
	sealed()
}

// OrderCreated is published when a new order is placed
type OrderCreated struct {
	RestaurantID string  `json:"restaurant_id"`
	Timestamp    int64   `json:"timestamp"`
	OrderID      string  `json:"order_id"`
	OrderNumber  string  `json:"order_number,omitempty"`
	TableID      string  `json:"table_id,omitempty"`
	Total        float64 `json:"total,omitempty"`
}

// OrderStatusChanged is published when an order moves between workflow states
type OrderStatusChanged struct {
	RestaurantID string `json:"restaurant_id"`
	Timestamp    int64  `json:"timestamp"`
	OrderID      string `json:"order_id"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
}

// OrderItemStatusChanged is published when a single line item changes state
type OrderItemStatusChanged struct {
	RestaurantID string `json:"restaurant_id"`
	Timestamp    int64  `json:"timestamp"`
	OrderID      string `json:"order_id"`
	ItemID       string `json:"item_id"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
}

// KitchenNotification is a free-form message for kitchen displays
type KitchenNotification struct {
	RestaurantID string `json:"restaurant_id"`
	Timestamp    int64  `json:"timestamp"`
	OrderID      string `json:"order_id,omitempty"`
	Message      string `json:"message"`
}

// RestaurantNotification is a free-form message for front-of-house staff
type RestaurantNotification struct {
	RestaurantID string `json:"restaurant_id"`
	Timestamp    int64  `json:"timestamp"`
	Message      string `json:"message"`
}

// PaymentCompleted is published when a payment settles
type PaymentCompleted struct {
	RestaurantID  string  `json:"restaurant_id"`
	Timestamp     int64   `json:"timestamp"`
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	ReceiptNumber string  `json:"receipt_number,omitempty"`
}

// TableStatusChanged is published when a table's availability changes
type TableStatusChanged struct {
	RestaurantID string `json:"restaurant_id"`
	Timestamp    int64  `json:"timestamp"`
	TableID      string `json:"table_id"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
}

func (OrderCreated) Channel() Channel           { return ChannelOrderCreated }
func (OrderStatusChanged) Channel() Channel     { return ChannelOrderStatusChanged }
func (OrderItemStatusChanged) Channel() Channel { return ChannelOrderItemStatusChanged }
func (KitchenNotification) Channel() Channel    { return ChannelKitchenNotification }
func (RestaurantNotification) Channel() Channel { return ChannelRestaurantNotification }
func (PaymentCompleted) Channel() Channel       { return ChannelPaymentCompleted }
func (TableStatusChanged) Channel() Channel     { return ChannelTableStatusChanged }

func (e OrderCreated) Restaurant() string           { return e.RestaurantID }
func (e OrderStatusChanged) Restaurant() string     { return e.RestaurantID }
func (e OrderItemStatusChanged) Restaurant() string { return e.RestaurantID }
func (e KitchenNotification) Restaurant() string    { return e.RestaurantID }
func (e RestaurantNotification) Restaurant() string { return e.RestaurantID }
func (e PaymentCompleted) Restaurant() string       { return e.RestaurantID }
func (e TableStatusChanged) Restaurant() string     { return e.RestaurantID }

func (e OrderCreated) OccurredAt() int64           { return e.Timestamp }
func (e OrderStatusChanged) OccurredAt() int64     { return e.Timestamp }
func (e OrderItemStatusChanged) OccurredAt() int64 { return e.Timestamp }
func (e KitchenNotification) OccurredAt() int64    { return e.Timestamp }
func (e RestaurantNotification) OccurredAt() int64 { return e.Timestamp }
func (e PaymentCompleted) OccurredAt() int64       { return e.Timestamp }
func (e TableStatusChanged) OccurredAt() int64     { return e.Timestamp }

func (OrderCreated) sealed()           {}
func (OrderStatusChanged) sealed()     {}
func (OrderItemStatusChanged) sealed() {}
func (KitchenNotification) sealed()    {}
func (RestaurantNotification) sealed() {}
func (PaymentCompleted) sealed()       {}
func (TableStatusChanged) sealed()     {}

// NowMillis returns the current time as a millisecond timestamp
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
