package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/api"
	"github.com/Cherry1177/cloudtribe/internal/driver"
	"github.com/Cherry1177/cloudtribe/internal/models"
	"github.com/Cherry1177/cloudtribe/internal/session"
)

// GetDriver resolves the signed-in user's driver profile and installs it
// on the coordinator. A 404 from the backend is a normal "not a driver
// yet" outcome, not a failure.
func GetDriver(store session.Store, backend *api.Client, coord *driver.Coordinator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := store.Current()
		if err := driver.CanApply(user); err != nil {
			c.JSON(401, gin.H{"error": driver.ErrSignInRequired.Message})
			return
		}
		if !user.IsDriver {
			c.JSON(404, gin.H{"error": "使用者尚未成為司機"})
			return
		}

		profile, err := backend.DriverByUser(c.Request.Context(), user.ID)
		if err != nil {
			if errors.Is(err, api.ErrNotDriver) {
				c.JSON(404, gin.H{"error": "使用者尚未成為司機"})
				return
			}
			logger.Warn("driver lookup failed", zap.Int("user_id", user.ID), zap.Error(err))
			c.JSON(500, gin.H{"error": "獲取司機資料失敗"})
			return
		}

		coord.SetDriver(profile)
		c.JSON(200, profile)
	}
}

// ApplyDriver runs the onboarding form submission.
func ApplyDriver(onboarding *driver.Onboarding) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form models.Driver
		if err := c.ShouldBindJSON(&form); err != nil {
			c.JSON(400, gin.H{"error": "Invalid driver payload"})
			return
		}

		created, err := onboarding.Apply(c.Request.Context(), form)
		if err != nil {
			if errors.Is(err, driver.ErrSignInRequired) {
				c.JSON(401, gin.H{"error": driver.ErrSignInRequired.Message})
				return
			}
			respondActionError(c, err)
			return
		}

		c.JSON(200, created)
	}
}

// GetDriverOrders renders the filtered accepted-orders view with its
// aggregates. Query params: status (default 接單), start_date, end_date,
// refresh=1 to re-pull from the backend first.
func GetDriverOrders(coord *driver.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("refresh") == "1" {
			if err := coord.RefreshAccepted(c.Request.Context()); err != nil {
				respondActionError(c, err)
				return
			}
		}

		status := models.OrderStatus(c.DefaultQuery("status", string(models.OrderStatusAccepted)))
		view := coord.FilteredView(status, c.Query("start_date"), c.Query("end_date"))
		c.JSON(200, view)
	}
}

// GetUnacceptedOrders renders the urgent-first open-orders view.
func GetUnacceptedOrders(coord *driver.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("refresh") == "1" {
			if err := coord.RefreshUnaccepted(c.Request.Context()); err != nil {
				respondActionError(c, err)
				return
			}
		}
		c.JSON(200, gin.H{"orders": coord.Unaccepted()})
	}
}

type acceptRequest struct {
	Service   string `json:"service" binding:"required"`
	Confirm   bool   `json:"confirm"`
	Reconfirm bool   `json:"reconfirm"`
}

// AcceptOrder runs the accept flow. The two confirmation answers travel
// with the request; declining either aborts before any backend call.
func AcceptOrder(coord *driver.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("orderId"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid order ID"})
			return
		}

		var req acceptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "Invalid accept payload"})
			return
		}

		answers := []bool{req.Confirm, req.Reconfirm}
		asked := 0
		confirm := driver.ConfirmerFunc(func(string) bool {
			if asked >= len(answers) {
				return false
			}
			answer := answers[asked]
			asked++
			return answer
		})

		accepted, err := coord.Accept(c.Request.Context(), orderID, req.Service, confirm)
		if err != nil {
			respondActionError(c, err)
			return
		}
		if !accepted {
			c.JSON(200, gin.H{"accepted": false})
			return
		}

		c.JSON(200, gin.H{"accepted": true, "message": "接單成功"})
	}
}

type transferRequest struct {
	NewDriverPhone string `json:"new_driver_phone" binding:"required"`
}

// TransferOrder hands an order to another driver by phone number.
func TransferOrder(coord *driver.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("orderId"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid order ID"})
			return
		}

		var req transferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "Invalid transfer payload"})
			return
		}

		if err := coord.Transfer(c.Request.Context(), orderID, req.NewDriverPhone); err != nil {
			respondActionError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "轉單成功，已成功交給目標司機"})
	}
}

type completeRequest struct {
	Service string `json:"service" binding:"required"`
}

// CompleteOrder posts the completion of an order.
func CompleteOrder(coord *driver.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("orderId"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid order ID"})
			return
		}

		var req completeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "Invalid complete payload"})
			return
		}

		if err := coord.Complete(c.Request.Context(), orderID, req.Service); err != nil {
			respondActionError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "訂單已完成"})
	}
}

type navigateRequest struct {
	Origin *models.LatLng `json:"origin"`
}

// Navigate builds the navigation hand-off from the accepted orders and
// the resolved final destination.
func Navigate(coord *driver.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req navigateRequest
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			c.JSON(400, gin.H{"error": "Invalid navigate payload"})
			return
		}

		plan, err := coord.Navigate(req.Origin)
		if err != nil {
			respondActionError(c, err)
			return
		}

		c.JSON(200, plan)
	}
}

// respondActionError maps coordinator errors onto the responses the
// screens show: preconditions as 4xx, everything else as a localized 5xx.
func respondActionError(c *gin.Context, err error) {
	if errors.Is(err, driver.ErrMissingDriver) {
		c.JSON(409, gin.H{"error": "司機資料尚未載入"})
		return
	}

	var ue *driver.UserError
	if errors.As(err, &ue) {
		if ue.Err == nil {
			// Pure precondition, nothing was sent.
			c.JSON(400, gin.H{"error": ue.Message})
			return
		}
		c.JSON(502, gin.H{"error": ue.Message})
		return
	}

	c.JSON(500, gin.H{"error": err.Error()})
}
