package server

import (
	"confectionery/internal/config"
	"confectionery/internal/handler"
	"confectionery/internal/middleware"
	"confectionery/internal/repository"
)

type Handlers struct {
	Health       *handler.HealthHandler
	Catalog      *handler.CatalogHandler
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Auth         *handler.AuthHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminCatalog *handler.AdminCatalogHandler
	AdminUser    *handler.AdminUserHandler
}

func (s *Server) RegisterRoutes(cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	e := s.echo

	h.Health.RegisterRoutes(e)
	h.Catalog.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg.SessionTTL, cfg.CookieSecure)
	h.Checkout.RegisterRoutes(e, cfg, userRepo)
	h.Auth.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)

	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)
	h.AdminOrder.RegisterRoutes(admin)
	h.AdminCatalog.RegisterRoutes(admin)
	h.AdminUser.RegisterRoutes(admin)
}
