package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Cherry1177/cloudtribe/internal/models"
	"github.com/Cherry1177/cloudtribe/internal/session"
)

// GetSession returns the signed-in user, nil when nobody is.
func GetSession(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"user": store.Current()})
	}
}

// PutSession replaces the signed-in user and broadcasts the change.
func PutSession(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(400, gin.H{"error": "Invalid user payload"})
			return
		}

		if err := store.Set(&user); err != nil {
			c.JSON(500, gin.H{"error": "Failed to persist session"})
			return
		}

		c.JSON(200, gin.H{"user": &user})
	}
}

// DeleteSession signs the user out.
func DeleteSession(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Clear(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to clear session"})
			return
		}
		c.JSON(200, gin.H{"message": "signed out"})
	}
}
