package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"maintenance-backend/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from a separate frontend origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS handles GET /api/ws, upgrading the connection and attaching it to
// the realtime hub. Room membership is driven by joinRoom/leaveRoom frames
// sent by the client.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	realtime.NewClient(h.hub, conn)
}
