// Package driver orchestrates the order lifecycle actions of the driver
// screens and keeps the cached order lists consistent with the backend.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/api"
	"github.com/Cherry1177/cloudtribe/internal/models"
	"github.com/Cherry1177/cloudtribe/internal/orders"
	"github.com/Cherry1177/cloudtribe/pkg/utils"
)

// UserError carries the localized message a screen shows for a failed or
// blocked action. The wrapped cause stays out of the user's view.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

// ErrMissingDriver is the precondition failure of an action invoked before
// the driver identity resolved. It is an internal-state error, not a
// retryable user condition.
var ErrMissingDriver = errors.New("driver identity not resolved")

// ErrNoDestination blocks navigation until a final destination resolves.
var ErrNoDestination = &UserError{Message: "請先設定最終目的地"}

// Confirmer answers the blocking "are you sure" dialogs.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a func to Confirmer.
type ConfirmerFunc func(prompt string) bool

func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// Backend is the slice of the REST client the coordinator needs.
type Backend interface {
	DriverOrders(ctx context.Context, driverID int) ([]models.Order, error)
	Orders(ctx context.Context) ([]models.Order, error)
	AcceptOrder(ctx context.Context, service string, orderID int, action models.DriverOrderAction) error
	TransferOrder(ctx context.Context, orderID, currentDriverID int, newDriverPhone string) error
	CompleteOrder(ctx context.Context, service string, orderID int) error
}

// Coordinator owns the cached accepted and unaccepted order lists, the
// resolved final destination, and the four lifecycle actions.
type Coordinator struct {
	backend Backend
	logger  *zap.Logger
	notify  func(event string, data any)

	// in-flight flags, one per list. A refresh that finds its flag set is
	// a no-op, so two replies for the same list can never race.
	acceptedFetch   atomic.Bool
	unacceptedFetch atomic.Bool

	mu          sync.Mutex
	driver      *models.Driver
	accepted    []models.Order
	unaccepted  []models.Order
	destination *models.FinalDestination
}

// New builds a coordinator. notify, when non-nil, receives an event for
// every cache change so open screens can re-render.
func New(backend Backend, notify func(event string, data any), logger *zap.Logger) *Coordinator {
	if notify == nil {
		notify = func(string, any) {}
	}
	return &Coordinator{
		backend: backend,
		notify:  notify,
		logger:  logger,
	}
}

// SetDriver installs the resolved driver identity.
func (c *Coordinator) SetDriver(driver *models.Driver) {
	c.mu.Lock()
	c.driver = driver
	c.mu.Unlock()
}

// Driver returns the resolved driver identity, if any.
func (c *Coordinator) Driver() *models.Driver {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.driver == nil {
		return nil
	}
	d := *c.driver
	return &d
}

// SetDestination installs the resolved final destination.
func (c *Coordinator) SetDestination(dest *models.FinalDestination) {
	c.mu.Lock()
	c.destination = dest
	c.mu.Unlock()
}

// RefreshAccepted re-pulls the driver's assigned orders. A refresh already
// in flight makes this a no-op; a failed pull leaves the previous cache
// untouched (stale-but-available beats empty-on-error).
func (c *Coordinator) RefreshAccepted(ctx context.Context) error {
	driver := c.Driver()
	if driver == nil {
		return ErrMissingDriver
	}

	if !c.acceptedFetch.CompareAndSwap(false, true) {
		return nil
	}
	defer c.acceptedFetch.Store(false)

	list, err := c.backend.DriverOrders(ctx, driver.ID)
	if err != nil {
		return &UserError{Message: "獲取訂單失敗", Err: err}
	}

	c.mu.Lock()
	c.accepted = list
	c.mu.Unlock()

	c.notify("orders_refreshed", map[string]any{"list": "accepted"})
	return nil
}

// RefreshUnaccepted re-pulls the global order list and keeps the
// urgent-first unaccepted view. Same guard semantics as RefreshAccepted.
func (c *Coordinator) RefreshUnaccepted(ctx context.Context) error {
	if !c.unacceptedFetch.CompareAndSwap(false, true) {
		return nil
	}
	defer c.unacceptedFetch.Store(false)

	list, err := c.backend.Orders(ctx)
	if err != nil {
		return &UserError{Message: "獲取訂單失敗", Err: err}
	}

	view := orders.Unaccepted(list)

	c.mu.Lock()
	c.unaccepted = view
	c.mu.Unlock()

	c.notify("orders_refreshed", map[string]any{"list": "unaccepted"})
	return nil
}

// Accepted returns a copy of the cached assigned-orders list.
func (c *Coordinator) Accepted() []models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Order(nil), c.accepted...)
}

// Unaccepted returns a copy of the cached urgent-first open-orders view.
func (c *Coordinator) Unaccepted() []models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Order(nil), c.unaccepted...)
}

// View is a rendered order list with its derived aggregates.
type View struct {
	Orders          []models.Order         `json:"orders"`
	TotalPrice      float64                `json:"total_price"`
	ItemsByLocation []orders.LocationItems `json:"items_by_location"`
}

// FilteredView renders the cached accepted list through the filter engine.
func (c *Coordinator) FilteredView(status models.OrderStatus, startDate, endDate string) View {
	filtered := orders.Filter(c.Accepted(), status, startDate, endDate)
	return View{
		Orders:          filtered,
		TotalPrice:      orders.TotalPrice(filtered),
		ItemsByLocation: orders.ItemsByLocation(filtered),
	}
}

// Accept runs the accept flow: two confirmations, then the backend call.
// Declining either confirmation aborts silently with no network call.
// Returns whether the order was accepted.
func (c *Coordinator) Accept(ctx context.Context, orderID int, service string, confirm Confirmer) (bool, error) {
	if !confirm.Confirm("您確定要接單嗎？") {
		return false, nil
	}
	if !confirm.Confirm("請再次確認：確定接單？") {
		return false, nil
	}

	driver := c.Driver()
	if driver == nil {
		return false, ErrMissingDriver
	}

	action := models.DriverOrderAction{
		DriverID:  driver.ID,
		OrderID:   orderID,
		Action:    models.ActionAccept,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   service,
	}

	if err := c.backend.AcceptOrder(ctx, service, orderID, action); err != nil {
		// The order stays in the unaccepted view so the driver can retry.
		return false, &UserError{Message: "接單失敗", Err: err}
	}

	c.notify("order_accepted", map[string]any{"order_id": orderID})
	if err := c.RefreshUnaccepted(ctx); err != nil {
		c.logger.Warn("refresh after accept failed", zap.Error(err))
	}
	return true, nil
}

// Transfer hands an order to the driver owning newDriverPhone. Success
// removes exactly that order from the accepted cache; the backend owns it
// now. Failure leaves the cache untouched.
func (c *Coordinator) Transfer(ctx context.Context, orderID int, newDriverPhone string) error {
	driver := c.Driver()
	if driver == nil {
		return ErrMissingDriver
	}

	if err := c.backend.TransferOrder(ctx, orderID, driver.ID, newDriverPhone); err != nil {
		if errors.Is(err, api.ErrDriverNotRegistered) {
			return &UserError{
				Message: "轉單失敗，填寫電話號碼的司機未註冊，請重新整理頁面讓表單重新出現",
				Err:     err,
			}
		}
		return &UserError{Message: "轉單失敗", Err: err}
	}

	c.removeAccepted(orderID)
	c.notify("order_transferred", map[string]any{"order_id": orderID})
	return nil
}

// Complete posts the completion of an order and drops it from the
// accepted cache on success.
func (c *Coordinator) Complete(ctx context.Context, orderID int, service string) error {
	if err := c.backend.CompleteOrder(ctx, service, orderID); err != nil {
		return &UserError{Message: "完成訂單失敗", Err: err}
	}

	c.removeAccepted(orderID)
	c.notify("order_completed", map[string]any{"order_id": orderID})
	return nil
}

func (c *Coordinator) removeAccepted(orderID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.accepted[:0]
	for _, order := range c.accepted {
		if order.ID != orderID {
			kept = append(kept, order)
		}
	}
	c.accepted = kept
}

// NavigationPlan is the hand-off to the navigation screen.
type NavigationPlan struct {
	URL              string                  `json:"url"`
	Destination      models.FinalDestination `json:"destination"`
	Waypoints        []string                `json:"waypoints"`
	EstimatedKm      float64                 `json:"estimated_km,omitempty"`
	EstimatedMinutes int                     `json:"estimated_minutes,omitempty"`
}

// Navigate builds the waypoint set over the accepted orders (each order's
// own location plus all its item locations, first encounter wins) and
// encodes it with the resolved final destination into the navigation URL.
// origin, when known, adds a straight-line distance/ETA estimate.
func (c *Coordinator) Navigate(origin *models.LatLng) (*NavigationPlan, error) {
	driver := c.Driver()
	if driver == nil {
		return nil, ErrMissingDriver
	}

	c.mu.Lock()
	destination := c.destination
	accepted := append([]models.Order(nil), c.accepted...)
	c.mu.Unlock()

	if destination == nil {
		return nil, ErrNoDestination
	}

	seen := make(map[string]bool)
	waypoints := make([]string, 0)
	add := func(location string) {
		if location == "" || seen[location] {
			return
		}
		seen[location] = true
		waypoints = append(waypoints, location)
	}
	for _, order := range accepted {
		if order.Status != models.OrderStatusAccepted {
			continue
		}
		add(order.Location)
		for _, item := range order.Items {
			add(item.Location)
		}
	}

	destJSON, err := json.Marshal(destination)
	if err != nil {
		return nil, fmt.Errorf("encoding destination: %w", err)
	}
	waypointsJSON, err := json.Marshal(waypoints)
	if err != nil {
		return nil, fmt.Errorf("encoding waypoints: %w", err)
	}

	plan := &NavigationPlan{
		URL: fmt.Sprintf("/navigation?driverId=%d&finalDestination=%s&waypoints=%s",
			driver.ID,
			url.QueryEscape(string(destJSON)),
			url.QueryEscape(string(waypointsJSON))),
		Destination: *destination,
		Waypoints:   waypoints,
	}

	if origin != nil {
		distance := utils.HaversineDistance(origin.Lat, origin.Lng,
			destination.Location.Lat, destination.Location.Lng)
		plan.EstimatedKm = distance
		plan.EstimatedMinutes = utils.CalculateETA(distance, 30)
	}

	return plan, nil
}
