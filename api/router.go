package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestTimeout bounds every request, builds included.
const RequestTimeout = 10 * time.Second

// NewRouter creates a Gin engine with the curve routes under /api/v1.
// Health endpoints are registered separately by the caller.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	router.Use(
		RequestID(),
		RequestLogger(),
		Recovery(),
		Timeout(RequestTimeout),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/curves", handler.ListCurves)
		v1.PUT("/curves/:name", handler.DefineCurve)
		v1.GET("/curves/:name", handler.GetCurve)
		v1.POST("/curves/:name/rebuild", handler.Rebuild)
		v1.GET("/curves/:name/nodes", handler.GetNodes)
		v1.GET("/curves/:name/quotes", handler.GetQuotes)
		v1.PUT("/curves/:name/quotes", handler.UpdateQuotes)
		v1.GET("/curves/:name/discount", handler.GetDiscount)
		v1.GET("/curves/:name/zero", handler.GetZero)
		v1.GET("/curves/:name/forward", handler.GetForward)
	}

	return router
}
