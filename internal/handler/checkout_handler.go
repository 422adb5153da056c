package handler

import (
	"net/http"

	"confectionery/internal/config"
	"confectionery/internal/domain/checkout"
	"confectionery/internal/middleware"
	"confectionery/internal/repository"
	"confectionery/internal/usecase"

	"github.com/labstack/echo/v4"
)

const idempotencyHeader = "X-Idempotency-Key"

// 3ステップのチェックアウト。ゲストもログインユーザーも使う。
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/checkout",
		middleware.CartSession(cfg.SessionTTL, cfg.CookieSecure),
		middleware.OptionalAuth(cfg),
		middleware.TokenVersionGuard(userRepo),
	)

	g.GET("", h.get)
	g.POST("/personal", h.personal)
	g.POST("/delivery", h.delivery)
	g.POST("/back", h.back)
	g.POST("/payment", h.payment)
}

func (h *CheckoutHandler) get(c echo.Context) error {
	out, err := h.uc.Get(c.Request().Context(), middleware.CartSessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) personal(c echo.Context) error {
	var req checkout.PersonalData
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.SubmitPersonal(c.Request().Context(), middleware.CartSessionID(c), middleware.OptionalUserID(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) delivery(c echo.Context) error {
	var req checkout.DeliveryData
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.SubmitDelivery(c.Request().Context(), middleware.CartSessionID(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) back(c echo.Context) error {
	out, err := h.uc.Back(c.Request().Context(), middleware.CartSessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 注文確定。同じX-Idempotency-Keyなら同じ注文を返す。
func (h *CheckoutHandler) payment(c echo.Context) error {
	var req checkout.PaymentData
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.PlaceOrder(
		c.Request().Context(),
		middleware.CartSessionID(c),
		middleware.OptionalUserID(c),
		req,
		c.Request().Header.Get(idempotencyHeader),
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
