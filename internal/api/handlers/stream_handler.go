package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/realtime"
)

// StreamHandler exposes broker topics as server-sent event streams.
type StreamHandler struct {
	broker realtime.Broker
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(broker realtime.Broker) *StreamHandler {
	return &StreamHandler{broker: broker}
}

// StreamListings handles GET /v1/stream/listings: every listing create,
// update and delete, as it happens.
func (h *StreamHandler) StreamListings(c *gin.Context) {
	h.stream(c, realtime.TopicListings)
}

// StreamFavorites handles GET /v1/stream/favorites: the viewer's own ledger
// changes, so a second tab stays in sync.
func (h *StreamHandler) StreamFavorites(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	h.stream(c, realtime.TopicFavorites(userID.Hex()))
}

func (h *StreamHandler) stream(c *gin.Context, topic string) {
	sub, err := h.broker.Subscribe(topic)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	defer sub.Unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, open := <-sub.C:
			if !open {
				return false
			}
			data, err := json.Marshal(ev)
			if err != nil {
				return true
			}
			c.SSEvent(ev.Kind, string(data))
			return true
		}
	})
}
