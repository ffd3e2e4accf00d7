// Package api is the HTTP client for the CloudTribe backend REST API.
// All order and driver state lives there; this client never caches.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

// ErrNotDriver marks the 404 of the driver lookup: the user exists but has
// not registered as a driver. Callers treat it as a normal outcome.
var ErrNotDriver = errors.New("user is not a driver")

// ErrDriverNotRegistered marks a transfer whose target phone number does
// not belong to a registered driver.
var ErrDriverNotRegistered = errors.New("target driver is not registered")

// StatusError is any other non-2xx reply.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// DriverByUser resolves the driver profile linked to a user id.
// Returns ErrNotDriver on 404.
func (c *Client) DriverByUser(ctx context.Context, userID int) (*models.Driver, error) {
	var driver models.Driver
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/drivers/user/%d", userID), nil, &driver)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return nil, ErrNotDriver
		}
		return nil, err
	}
	return &driver, nil
}

// DriverOrders lists the orders currently assigned to a driver.
func (c *Client) DriverOrders(ctx context.Context, driverID int) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/drivers/%d/orders", driverID), nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Orders lists every order regardless of status; the caller filters.
func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// AcceptOrder submits the accept action record to the service-specific
// handler.
func (c *Client) AcceptOrder(ctx context.Context, service string, orderID int, action models.DriverOrderAction) error {
	path := fmt.Sprintf("/api/orders/%s/%d/accept", service, orderID)
	return c.do(ctx, http.MethodPost, path, action, nil)
}

type transferRequest struct {
	CurrentDriverID int    `json:"current_driver_id"`
	NewDriverPhone  string `json:"new_driver_phone"`
}

// TransferOrder hands an order over to the driver owning newDriverPhone.
// Returns ErrDriverNotRegistered when the backend does not know the phone.
func (c *Client) TransferOrder(ctx context.Context, orderID, currentDriverID int, newDriverPhone string) error {
	body := transferRequest{CurrentDriverID: currentDriverID, NewDriverPhone: newDriverPhone}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/transfer", orderID), body, nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return ErrDriverNotRegistered
		}
	}
	return err
}

// CompleteOrder posts the completion of an order, empty body.
func (c *Client) CompleteOrder(ctx context.Context, service string, orderID int) error {
	path := fmt.Sprintf("/api/orders/%s/%d/complete", service, orderID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// CreateDriver registers the driver profile from the onboarding form.
func (c *Client) CreateDriver(ctx context.Context, driver models.Driver) (*models.Driver, error) {
	var created models.Driver
	if err := c.do(ctx, http.MethodPost, "/api/drivers", driver, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// MarkUserAsDriver flips the backend's is_driver flag for a user.
func (c *Client) MarkUserAsDriver(ctx context.Context, userID int) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/users/driver/%d", userID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Status: resp.StatusCode, Body: string(payload)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", method, path, err)
	}
	return nil
}
