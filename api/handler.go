package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/marketdata"
	"github.com/meenmo/ycurve/service"
	"github.com/meenmo/ycurve/utils"
)

// CurveService is what the handlers need from the curve registry.
type CurveService interface {
	Names() []string
	Define(def marketdata.Definition) error
	Build(ctx context.Context, name string) (*service.Snapshot, error)
	Curve(name string) (*service.Snapshot, error)
	Quotes(name string) (map[string]float64, error)
	UpdateQuotes(name string, updates []marketdata.QuoteUpdate) ([]string, error)
}

var _ CurveService = (*service.Service)(nil)

// Handler serves curve definitions, builds and queries.
type Handler struct {
	svc CurveService
}

func NewHandler(svc CurveService) *Handler {
	return &Handler{svc: svc}
}

// status maps engine and registry errors to HTTP status codes.
func status(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownCurve):
		return http.StatusNotFound
	case errors.Is(err, curve.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, curve.ErrExtrapolationDisallowed),
		errors.Is(err, curve.ErrUnreachableQuote),
		errors.Is(err, curve.ErrNonConvergent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, msg string, err error) {
	c.JSON(status(err), NewErrorResponse(msg, err))
}

func summary(s *service.Snapshot) CurveResponse {
	return CurveResponse{
		Name:          s.Name,
		BuildID:       s.ID.String(),
		ReferenceDate: s.Curve.ReferenceDate().Format(utils.DateLayout),
		MaxDate:       s.Curve.MaxDate().Format(utils.DateLayout),
		BuiltAt:       s.BuiltAt,
		Passes:        s.Report.Passes,
		Nodes:         s.Report.Nodes,
		ElapsedMS:     float64(s.Report.Duration) / float64(time.Millisecond),
	}
}

// ListCurves handles GET /api/v1/curves.
func (h *Handler) ListCurves(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"curves": h.svc.Names()})
}

// DefineCurve handles PUT /api/v1/curves/:name. The body is a curve
// definition; the curve is built immediately.
func (h *Handler) DefineCurve(c *gin.Context) {
	name := c.Param("name")
	var def marketdata.Definition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid curve definition", err))
		return
	}
	if def.Name == "" {
		def.Name = name
	}
	if def.Name != name {
		c.JSON(http.StatusBadRequest, NewErrorResponse("definition name does not match path", nil))
		return
	}
	if err := h.svc.Define(def); err != nil {
		fail(c, "invalid curve definition", err)
		return
	}
	snap, err := h.svc.Build(c.Request.Context(), name)
	if err != nil {
		fail(c, "curve defined but build failed", err)
		return
	}
	c.JSON(http.StatusCreated, summary(snap))
}

// GetCurve handles GET /api/v1/curves/:name.
func (h *Handler) GetCurve(c *gin.Context) {
	snap, err := h.svc.Curve(c.Param("name"))
	if err != nil {
		fail(c, "curve not available", err)
		return
	}
	c.JSON(http.StatusOK, summary(snap))
}

// Rebuild handles POST /api/v1/curves/:name/rebuild.
func (h *Handler) Rebuild(c *gin.Context) {
	snap, err := h.svc.Build(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, "build failed", err)
		return
	}
	c.JSON(http.StatusOK, summary(snap))
}

// GetNodes handles GET /api/v1/curves/:name/nodes.
func (h *Handler) GetNodes(c *gin.Context) {
	snap, err := h.svc.Curve(c.Param("name"))
	if err != nil {
		fail(c, "curve not available", err)
		return
	}
	nodes := snap.Curve.Nodes()
	out := make([]NodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = NodeResponse{Date: n.Date.Format(utils.DateLayout), Time: n.Time, Value: n.Value}
	}
	c.JSON(http.StatusOK, out)
}

// GetQuotes handles GET /api/v1/curves/:name/quotes.
func (h *Handler) GetQuotes(c *gin.Context) {
	quotes, err := h.svc.Quotes(c.Param("name"))
	if err != nil {
		fail(c, "quotes not available", err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

// UpdateQuotes handles PUT /api/v1/curves/:name/quotes. The batch is applied
// whole or not at all. With ?rebuild=true the curve is rebuilt afterwards.
func (h *Handler) UpdateQuotes(c *gin.Context) {
	name := c.Param("name")
	var reqs []QuoteUpdateRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid quote updates", err))
		return
	}

	updates := make([]marketdata.QuoteUpdate, len(reqs))
	for i, r := range reqs {
		updates[i] = marketdata.QuoteUpdate{Instrument: r.Instrument, Quote: r.Quote}
	}
	changed, err := h.svc.UpdateQuotes(name, updates)
	if err != nil {
		fail(c, "quote updates rejected", err)
		return
	}
	resp := QuoteUpdateResponse{Changed: changed}

	if rebuild, _ := strconv.ParseBool(c.Query("rebuild")); rebuild {
		snap, err := h.svc.Build(c.Request.Context(), name)
		if err != nil {
			fail(c, "quotes applied but build failed", err)
			return
		}
		s := summary(snap)
		resp.Curve = &s
	}
	c.JSON(http.StatusOK, resp)
}

func queryDate(c *gin.Context, key string) (time.Time, error) {
	d, err := utils.ParseDate(c.Query(key))
	if err != nil {
		return d, errors.Join(curve.ErrInvalidInput, err)
	}
	return d, nil
}

func queryConvention(c *gin.Context) (curve.Compounding, curve.Frequency, error) {
	comp, err := curve.ParseCompounding(c.DefaultQuery("compounding", "continuous"))
	if err != nil {
		return comp, 0, err
	}
	freq, err := curve.ParseFrequency(c.DefaultQuery("frequency", "annual"))
	return comp, freq, err
}

// GetDiscount handles GET /api/v1/curves/:name/discount?date=YYYY-MM-DD.
func (h *Handler) GetDiscount(c *gin.Context) {
	name := c.Param("name")
	d, err := queryDate(c, "date")
	if err != nil {
		fail(c, "invalid date", err)
		return
	}
	snap, err := h.svc.Curve(name)
	if err != nil {
		fail(c, "curve not available", err)
		return
	}
	df, err := snap.Curve.DiscountDate(d)
	if err != nil {
		fail(c, "discount query failed", err)
		return
	}
	c.JSON(http.StatusOK, ValueResponse{Curve: name, Date: d.Format(utils.DateLayout), Value: df})
}

// GetZero handles GET /api/v1/curves/:name/zero?date=&compounding=&frequency=.
func (h *Handler) GetZero(c *gin.Context) {
	name := c.Param("name")
	d, err := queryDate(c, "date")
	if err != nil {
		fail(c, "invalid date", err)
		return
	}
	comp, freq, err := queryConvention(c)
	if err != nil {
		fail(c, "invalid compounding", err)
		return
	}
	snap, err := h.svc.Curve(name)
	if err != nil {
		fail(c, "curve not available", err)
		return
	}
	z, err := snap.Curve.ZeroRate(d, comp, freq)
	if err != nil {
		fail(c, "zero rate query failed", err)
		return
	}
	c.JSON(http.StatusOK, ValueResponse{Curve: name, Date: d.Format(utils.DateLayout), Value: z})
}

// GetForward handles GET /api/v1/curves/:name/forward?start=&end=&compounding=&frequency=.
func (h *Handler) GetForward(c *gin.Context) {
	name := c.Param("name")
	start, err := queryDate(c, "start")
	if err != nil {
		fail(c, "invalid start", err)
		return
	}
	end, err := queryDate(c, "end")
	if err != nil {
		fail(c, "invalid end", err)
		return
	}
	comp, freq, err := queryConvention(c)
	if err != nil {
		fail(c, "invalid compounding", err)
		return
	}
	snap, err := h.svc.Curve(name)
	if err != nil {
		fail(c, "curve not available", err)
		return
	}
	f, err := snap.Curve.ForwardRate(start, end, comp, freq)
	if err != nil {
		fail(c, "forward rate query failed", err)
		return
	}
	c.JSON(http.StatusOK, ValueResponse{
		Curve: name,
		Start: start.Format(utils.DateLayout),
		Date:  end.Format(utils.DateLayout),
		Value: f,
	})
}
