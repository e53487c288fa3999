package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/pos-backend/internal/app/service"
	"github.com/ikkim/pos-backend/internal/middleware"
	ws "github.com/ikkim/pos-backend/internal/websocket"
)

type CartSocketController struct {
	hub         *ws.Hub
	cartService service.CartService
	upgrader    websocket.Upgrader
}

// NewCartSocketController accepts upgrades from allowedOrigins. Requests
// without an Origin header (terminals, not browsers) are always accepted and
// "*" allows every origin.
func NewCartSocketController(hub *ws.Hub, cartService service.CartService, allowedOrigins []string) *CartSocketController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &CartSocketController{
		hub:         hub,
		cartService: cartService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Connect upgrades to a websocket that receives the current cart, then a
// new snapshot after every change
// GET /api/cart/ws
func (ctrl *CartSocketController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := resolveCartUser(c, nil)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, ws.NewConn(conn), userID)
	// Registered before the snapshot is read so no change falls in between.
	if err := ctrl.hub.Register(client); err != nil {
		log.Warn("WebSocket session refused", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		conn.Close()
		return
	}

	cart, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		log.Error("Failed to load cart for websocket session", err, map[string]interface{}{
			"user_id": userID,
		})
		ctrl.hub.Unregister(client)
		conn.Close()
		return
	}
	client.Push(ws.Event{Type: ws.EventCartUpdated, Cart: cart})

	go client.WritePump()
	go client.ReadPump()

	log.Info("Cart websocket connected", map[string]interface{}{
		"user_id": userID,
	})
}
