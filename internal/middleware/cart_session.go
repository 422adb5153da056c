package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	CartSessionCookie = "cart_session"
	CartSessionHeader = "X-Cart-Session"

	CtxCartSessionKey = "cart_session" // string
)

// カート/チェックアウトのセッションIDを決める。無ければ発行してcookieで返す。
// 形式が違うIDは受け付けず発行し直す（redisのキーに入るため）。
func CartSession(ttl time.Duration, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := c.Request().Header.Get(CartSessionHeader)
			if sid == "" {
				if ck, err := c.Cookie(CartSessionCookie); err == nil {
					sid = ck.Value
				}
			}

			if _, err := uuid.Parse(sid); err != nil {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     CartSessionCookie,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(ttl.Seconds()),
				})
			}
			// SPAがヘッダで持ち回れるように毎回返す
			c.Response().Header().Set(CartSessionHeader, sid)

			c.Set(CtxCartSessionKey, sid)
			return next(c)
		}
	}
}

func CartSessionID(c echo.Context) string {
	sid, _ := c.Get(CtxCartSessionKey).(string)
	return sid
}
