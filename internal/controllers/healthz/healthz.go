// Package healthz implements the liveness endpoint.
package healthz

import (
	"net/http"

	"github.com/costbook/reconciler/internal/httputil"
	"github.com/costbook/reconciler/internal/models"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", Options)
	r.GET("", Get)
}

// Options returns an empty response with the HTTP Header "allow" set to the
// allowed HTTP verbs.
func Options(c *gin.Context) {
	httputil.OptionsGet(c)
}

// Get returns the application health and, if not healthy, an error.
func Get(c *gin.Context) {
	sqlDB, err := models.DB.DB()
	if err != nil {
		httputil.NewError(c, http.StatusInternalServerError, err)
		return
	}

	err = sqlDB.Ping()
	if err != nil {
		httputil.NewError(c, http.StatusInternalServerError, err)
		return
	}

	c.Status(http.StatusNoContent)
}
