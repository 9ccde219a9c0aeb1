// Package router sets up the HTTP surface for triggering reconciliation
// jobs.
package router

import (
	"net/http"
	"os"
	"strings"

	"github.com/costbook/reconciler/internal/controllers"
	"github.com/costbook/reconciler/internal/controllers/healthz"
	"github.com/costbook/reconciler/internal/httputil"
	"github.com/costbook/reconciler/internal/jobs"
	"github.com/costbook/reconciler/internal/ledger"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/logger"
	"github.com/gin-contrib/pprof"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// This is overwritten at build time with -ldflags.
var version = "0.0.0"

// Router controls the routes for the job trigger API.
func Router(client ledger.Client) (*gin.Engine, error) {
	// Set up the router and middlewares
	r := gin.New()

	// Don’t process X-Forwarded-For header as we do not do anything with
	// client IPs
	r.ForwardedByClientIP = false

	// Send a HTTP 405 (Method not allowed) for all paths where there is
	// a handler, but not for the specific method used
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(requestid.New())
	r.Use(MetricsMiddleware())
	r.Use(logger.SetLogger(
		logger.WithDefaultLevel(zerolog.InfoLevel),
		logger.WithClientErrorLevel(zerolog.InfoLevel),
		logger.WithServerErrorLevel(zerolog.ErrorLevel),
		logger.WithLogger(func(c *gin.Context, l zerolog.Logger) zerolog.Logger {
			return l.With().
				Str("request-id", requestid.Get(c)).
				Str("user-agent", c.Request.UserAgent()).
				Logger()
		})))

	// CORS settings
	allowOrigins, ok := os.LookupEnv("CORS_ALLOW_ORIGINS")
	if ok {
		log.Debug().Str("allowOrigins", allowOrigins).Msg("CORS")

		r.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Fields(allowOrigins),
			AllowMethods:     []string{"OPTIONS", "GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	// Disable the gin debug route printing as it clutters logs (and test logs)
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, numHandlers int) {}

	// Don’t trust any proxy. We do not process any client IPs,
	// therefore we don’t need to trust anyone here.
	_ = r.SetTrustedProxies([]string{})

	if err := registerPrometheusMetrics(); err != nil {
		return nil, err
	}

	/*
	 *  Route setup
	 */
	r.GET("", GetRoot)
	r.OPTIONS("", OptionsRoot)

	r.GET("/version", GetVersion)
	r.OPTIONS("/version", OptionsVersion)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthz.RegisterRoutes(r.Group("/healthz"))

	// pprof performance profiles
	enablePprof, ok := os.LookupEnv("ENABLE_PPROF")
	if ok && enablePprof == "true" {
		pprof.Register(r, "debug/pprof")
	}

	// API v1 setup
	v1 := r.Group("/v1")
	{
		v1.GET("", GetV1)
		v1.OPTIONS("", OptionsV1)
	}

	controllers.NewJobsController(client).RegisterRoutes(v1.Group("/jobs"))

	log.Info().Str("version", version).Msg("router setup complete")

	return r, nil
}

// Teardown unregisters the prometheus metrics so that a router can be set up
// again, e.g. in tests.
func Teardown() {
	unregisterPrometheusMetrics()
	jobs.UnregisterMetrics()
}

type RootResponse struct {
	Links RootLinks `json:"links"`
}

type RootLinks struct {
	Healthz string `json:"healthz" example:"https://example.com/api/healthz"`
	Version string `json:"version" example:"https://example.com/api/version"`
	Metrics string `json:"metrics" example:"https://example.com/api/metrics"`
	V1      string `json:"v1" example:"https://example.com/api/v1"`
}

// GetRoot is the entrypoint for the API, listing all endpoints.
func GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, RootResponse{
		Links: RootLinks{
			Healthz: "/healthz",
			Version: "/version",
			Metrics: "/metrics",
			V1:      "/v1",
		},
	})
}

type VersionResponse struct {
	Data VersionObject `json:"data"`
}
type VersionObject struct {
	Version string `json:"version" example:"1.1.0"`
}

// GetVersion returns the software version of the API.
func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, VersionResponse{
		Data: VersionObject{
			Version: version,
		},
	})
}

func OptionsRoot(c *gin.Context) {
	httputil.OptionsGet(c)
}

func OptionsVersion(c *gin.Context) {
	httputil.OptionsGet(c)
}

type V1Response struct {
	Links V1Links `json:"links"`
}

type V1Links struct {
	DedupInstallments string `json:"dedupInstallments" example:"https://example.com/api/v1/jobs/dedup-installments"`
	DedupTemplates    string `json:"dedupTemplates" example:"https://example.com/api/v1/jobs/dedup-templates"`
	Regenerate        string `json:"regenerate" example:"https://example.com/api/v1/jobs/regenerate"`
	CorrectDates      string `json:"correctDates" example:"https://example.com/api/v1/jobs/correct-dates"`
	RelabelSector     string `json:"relabelSector" example:"https://example.com/api/v1/jobs/relabel-sector"`
}

// GetV1 returns general information about the v1 API.
func GetV1(c *gin.Context) {
	c.JSON(http.StatusOK, V1Response{
		Links: V1Links{
			DedupInstallments: "/v1/jobs/dedup-installments",
			DedupTemplates:    "/v1/jobs/dedup-templates",
			Regenerate:        "/v1/jobs/regenerate",
			CorrectDates:      "/v1/jobs/correct-dates",
			RelabelSector:     "/v1/jobs/relabel-sector",
		},
	})
}

func OptionsV1(c *gin.Context) {
	httputil.OptionsGet(c)
}
