// Package webhook is the inbound HTTP surface: the Meta webhook endpoints
// plus the REST convenience routes mirroring the conversational flows.
package webhook

import (
	"pressing_chatbot_backend/internal/catalog"
	"pressing_chatbot_backend/internal/chatbot"
	apphttp "pressing_chatbot_backend/internal/http"
	"pressing_chatbot_backend/internal/promotions"
	"pressing_chatbot_backend/platform/config"
	"pressing_chatbot_backend/platform/logger"
)

type Module struct {
	handler *Handler
	routes  *RelayRoutes
}

func NewModule(
	d *chatbot.Dispatcher,
	queue enqueuer,
	cat *catalog.Reader,
	promos *promotions.Service,
	points PointsReader,
	cfg config.WebhookConfig,
	log *logger.Logger,
) *Module {
	return &Module{
		handler: NewHandler(d, queue, cfg.GetVerifyToken(), log),
		routes:  NewRelayRoutes(cat, queue, promos, points, log),
	}
}

func (m *Module) Name() string { return "webhook" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	root := ctx.Root

	root.GET("/webhook", m.handler.Verify)
	root.POST("/webhook", ctx.RateLimit, m.handler.Receive)

	root.GET("/catalogue", m.routes.getCatalogue)
	root.POST("/pickup", ctx.RateLimit, m.routes.postPickup)
	root.POST("/commande", ctx.RateLimit, m.routes.postCommande)
	root.GET("/promotions", m.routes.getPromotions)
	root.POST("/fidelite", ctx.RateLimit, m.routes.postFidelite)
	root.GET("/fidelite", m.routes.getFidelite)
}
