// Package controllers implements the HTTP trigger surface for the
// reconciliation jobs.
package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/costbook/reconciler/internal/httputil"
	"github.com/costbook/reconciler/internal/jobs"
	"github.com/costbook/reconciler/internal/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	errInvalidUUID  = errors.New("the specified template ID is not a valid UUID")
	errInvalidMonth = errors.New("month must be between 1 and 12")
	errEmptyMatch   = errors.New("the match parameter must not be empty")
	errEmptySector  = errors.New("the sector parameter must not be empty")
)

// JobsController exposes each reconciliation job as an endpoint.
//
// Jobs run in dry-run mode unless the request sets execute=true, so a plain
// POST is always a safe preview.
type JobsController struct {
	client ledger.Client
}

func NewJobsController(client ledger.Client) JobsController {
	return JobsController{client: client}
}

func (co JobsController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/dedup-installments", co.DedupInstallments)
	r.OPTIONS("/dedup-installments", Options)
	r.POST("/dedup-templates", co.DedupTemplates)
	r.OPTIONS("/dedup-templates", Options)
	r.POST("/regenerate", co.Regenerate)
	r.OPTIONS("/regenerate", Options)
	r.POST("/correct-dates", co.CorrectDates)
	r.OPTIONS("/correct-dates", Options)
	r.POST("/relabel-sector", co.RelabelSector)
	r.OPTIONS("/relabel-sector", Options)
}

// Options returns an empty response with the HTTP Header "allow" set to the
// allowed HTTP verbs.
func Options(c *gin.Context) {
	httputil.OptionsPost(c)
}

type jobParams struct {
	Execute bool `form:"execute"`
	Debug   bool `form:"debug"`
}

func (p jobParams) options() jobs.Options {
	return jobs.Options{Execute: p.Execute, Debug: p.Debug}
}

// DedupInstallments removes duplicated installment entries.
func (co JobsController) DedupInstallments(c *gin.Context) {
	var params jobParams
	if err := c.Bind(&params); err != nil {
		return
	}

	report, err := jobs.New(co.client, params.options()).DeduplicateInstallments(c.Request.Context())
	if err != nil {
		httputil.NewError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// DedupTemplates removes duplicated templates and their installments.
func (co JobsController) DedupTemplates(c *gin.Context) {
	var params jobParams
	if err := c.Bind(&params); err != nil {
		return
	}

	report, err := jobs.New(co.client, params.options()).DeduplicateTemplates(c.Request.Context())
	if err != nil {
		httputil.NewError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Regenerate rebuilds all installments of one template.
func (co JobsController) Regenerate(c *gin.Context) {
	var params struct {
		jobParams
		Template string `form:"template"`
	}
	if err := c.Bind(&params); err != nil {
		return
	}

	templateID, err := uuid.Parse(params.Template)
	if err != nil {
		httputil.NewError(c, http.StatusBadRequest, errInvalidUUID)
		return
	}

	report, err := jobs.New(co.client, params.options()).Regenerate(c.Request.Context(), templateID)
	if err != nil {
		httputil.NewError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// CorrectDates moves matching entries into a target month.
func (co JobsController) CorrectDates(c *gin.Context) {
	var params struct {
		jobParams
		Match string `form:"match"`
		Year  int    `form:"year"`
		Month int    `form:"month"`
	}
	if err := c.Bind(&params); err != nil {
		return
	}

	if params.Match == "" {
		httputil.NewError(c, http.StatusBadRequest, errEmptyMatch)
		return
	}

	if params.Month < 1 || params.Month > 12 {
		httputil.NewError(c, http.StatusBadRequest, errInvalidMonth)
		return
	}

	report, err := jobs.New(co.client, params.options()).CorrectDates(c.Request.Context(), params.Match, params.Year, time.Month(params.Month))
	if err != nil {
		httputil.NewError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// RelabelSector overwrites the sector of matching entries.
func (co JobsController) RelabelSector(c *gin.Context) {
	var params struct {
		jobParams
		Match  string `form:"match"`
		Sector string `form:"sector"`
	}
	if err := c.Bind(&params); err != nil {
		return
	}

	if params.Match == "" {
		httputil.NewError(c, http.StatusBadRequest, errEmptyMatch)
		return
	}

	if params.Sector == "" {
		httputil.NewError(c, http.StatusBadRequest, errEmptySector)
		return
	}

	report, err := jobs.New(co.client, params.options()).RelabelSector(c.Request.Context(), params.Match, params.Sector)
	if err != nil {
		httputil.NewError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
