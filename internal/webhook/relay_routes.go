package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pressing_chatbot_backend/internal/catalog"
	"pressing_chatbot_backend/internal/promotions"
	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/httpkit"
	"pressing_chatbot_backend/platform/logger"
	"pressing_chatbot_backend/platform/phone"
)

// PointsReader returns the loyalty balance of a client.
type PointsReader interface {
	GetPoints(ctx context.Context, clientPhone string) int
}

// RelayRoutes exposes the convenience REST routes that mirror what the
// chatbot does over WhatsApp: catalogue lookup, pickup, manual orders,
// promotions and loyalty.
type RelayRoutes struct {
	catalog *catalog.Reader
	queue   enqueuer
	promos  *promotions.Service
	points  PointsReader
	log     *logger.Logger
}

func NewRelayRoutes(cat *catalog.Reader, queue enqueuer, promos *promotions.Service, points PointsReader, log *logger.Logger) *RelayRoutes {
	return &RelayRoutes{catalog: cat, queue: queue, promos: promos, points: points, log: log}
}

func (r *RelayRoutes) getCatalogue(c *gin.Context) {
	items, err := r.catalog.ReadCatalog(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok", "catalogue": items})
}

type pickupRequest struct {
	Phone   string  `json:"phone" binding:"required"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
}

func (r *RelayRoutes) postPickup(c *gin.Context) {
	var req pickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid pickup request", err.Error())
		return
	}

	err := r.queue.Enqueue(c.Request.Context(), relay.EventCreatePickup, relay.CreatePickupPayload{
		Phone:   phone.NormalizeE164(req.Phone),
		Lat:     req.Lat,
		Lon:     req.Lon,
		Address: req.Address,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok", "message": "Pickup request forwarded"})
}

func (r *RelayRoutes) postCommande(c *gin.Context) {
	var payload relay.CreateOrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid order request", err.Error())
		return
	}
	payload.Phone = phone.NormalizeE164(payload.Phone)
	if payload.TS == "" {
		payload.TS = time.Now().UTC().Format(time.RFC3339)
	}
	if payload.OrderID == "" {
		payload.OrderID = uuid.NewString()
	}

	if httpkit.HandleError(c, r.queue.Enqueue(c.Request.Context(), relay.EventCreateOrder, payload)) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok", "message": "Order forwarded to Make"})
}

func (r *RelayRoutes) getPromotions(c *gin.Context) {
	promos := r.promos.List(c.Request.Context())
	httpkit.OK(c, gin.H{"status": "ok", "promotions": promos})
}

type pointsRequest struct {
	ClientPhone string `json:"clientPhone" binding:"required"`
	Points      int    `json:"points" binding:"required"`
	Reason      string `json:"reason"`
	TS          string `json:"ts"`
}

func (r *RelayRoutes) postFidelite(c *gin.Context) {
	var req pointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid points request", err.Error())
		return
	}

	if req.TS == "" {
		req.TS = time.Now().UTC().Format(time.RFC3339)
	}
	err := r.queue.Enqueue(c.Request.Context(), relay.EventAddPoints, relay.AddPointsPayload{
		ClientPhone: phone.NormalizeE164(req.ClientPhone),
		Points:      req.Points,
		Reason:      req.Reason,
		TS:          req.TS,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

func (r *RelayRoutes) getFidelite(c *gin.Context) {
	clientPhone := c.Query("phone")
	if clientPhone == "" {
		httpkit.Error(c, http.StatusBadRequest, "phone query parameter is required", nil)
		return
	}
	balance := r.points.GetPoints(c.Request.Context(), phone.NormalizeE164(clientPhone))
	httpkit.OK(c, gin.H{"status": "ok", "points": balance})
}
