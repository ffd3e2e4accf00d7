package handlers

import (
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/driver"
	"github.com/Cherry1177/cloudtribe/internal/models"
	"github.com/Cherry1177/cloudtribe/internal/places"
	"github.com/Cherry1177/cloudtribe/internal/services"
)

// SearchSessions tracks one autocomplete engine per open destination
// field. Prediction batches are pushed to the screens over the hub, so a
// slow lookup never blocks the keystroke request.
type SearchSessions struct {
	mu      sync.Mutex
	engines map[string]*places.Autocomplete
	create  func(sessionID string) *places.Autocomplete
}

// NewSearchSessions wires engines to the hub: every prediction change is
// broadcast tagged with its session id.
func NewSearchSessions(api places.API, debounce time.Duration, minInput int, hub *services.Hub, logger *zap.Logger) *SearchSessions {
	return &SearchSessions{
		engines: make(map[string]*places.Autocomplete),
		create: func(sessionID string) *places.Autocomplete {
			onPredictions := func(predictions []models.Prediction) {
				hub.Broadcast("place_predictions", gin.H{
					"session_id":  sessionID,
					"predictions": predictions,
				})
			}
			return places.NewAutocomplete(api, debounce, minInput, onPredictions, logger)
		},
	}
}

func (s *SearchSessions) open() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.engines[id] = s.create(id)
	s.mu.Unlock()
	return id
}

func (s *SearchSessions) get(id string) *places.Autocomplete {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engines[id]
}

func (s *SearchSessions) close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if engine, ok := s.engines[id]; ok {
		engine.Stop()
		delete(s.engines, id)
	}
}

// OpenSearchSession starts a destination search session.
func OpenSearchSession(sessions *SearchSessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"session_id": sessions.open()})
	}
}

type searchInputRequest struct {
	Text string `json:"text"`
}

// SearchInput feeds one manual edit of the destination field into the
// session's engine. Predictions arrive later over the WebSocket.
func SearchInput(sessions *SearchSessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		engine := sessions.get(c.Param("id"))
		if engine == nil {
			c.JSON(404, gin.H{"error": "Unknown search session"})
			return
		}

		var req searchInputRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "Invalid input payload"})
			return
		}

		engine.Input(req.Text)
		c.JSON(202, gin.H{"text": req.Text})
	}
}

type searchSelectRequest struct {
	PlaceID string `json:"place_id" binding:"required"`
}

// SearchSelect resolves a chosen prediction, installs the destination on
// the coordinator and tells the screens.
func SearchSelect(sessions *SearchSessions, coord *driver.Coordinator, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		engine := sessions.get(c.Param("id"))
		if engine == nil {
			c.JSON(404, gin.H{"error": "Unknown search session"})
			return
		}

		var req searchSelectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "Invalid select payload"})
			return
		}

		destination, err := engine.Select(c.Request.Context(), req.PlaceID)
		if err != nil {
			if errors.Is(err, places.ErrDetailsUnavailable) {
				c.JSON(502, gin.H{"error": places.ErrDetailsUnavailable.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "無法獲取地點詳細資訊"})
			return
		}

		coord.SetDestination(destination)
		hub.Broadcast("destination_resolved", destination)
		c.JSON(200, gin.H{"destination": destination, "text": engine.Text()})
	}
}

// CloseSearchSession drops a search session and its pending timer.
func CloseSearchSession(sessions *SearchSessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions.close(c.Param("id"))
		c.JSON(200, gin.H{"message": "closed"})
	}
}
