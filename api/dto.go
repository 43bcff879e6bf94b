package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message      string    `json:"message"`
	ErrorDetails string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse; err may be nil.
func NewErrorResponse(msg string, err error) ErrorResponse {
	e := ErrorResponse{Message: msg, Timestamp: time.Now().UTC()}
	if err != nil {
		e.ErrorDetails = err.Error()
	}
	return e
}

// CurveResponse summarizes a published curve.
type CurveResponse struct {
	Name          string    `json:"name"`
	BuildID       string    `json:"build_id"`
	ReferenceDate string    `json:"reference_date"`
	MaxDate       string    `json:"max_date"`
	BuiltAt       time.Time `json:"built_at"`
	Passes        int       `json:"passes"`
	Nodes         int       `json:"nodes"`
	ElapsedMS     float64   `json:"elapsed_ms"`
}

// NodeResponse is one solved pillar.
type NodeResponse struct {
	Date  string  `json:"date"`
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// QuoteUpdateRequest sets one instrument quote in wire units.
type QuoteUpdateRequest struct {
	Instrument string          `json:"instrument" binding:"required"`
	Quote      decimal.Decimal `json:"quote"`
}

// QuoteUpdateResponse reports which instruments changed and, when requested,
// the rebuilt curve.
type QuoteUpdateResponse struct {
	Changed []string       `json:"changed"`
	Curve   *CurveResponse `json:"curve,omitempty"`
}

// ValueResponse is a single curve query result.
type ValueResponse struct {
	Curve string  `json:"curve"`
	Start string  `json:"start,omitempty"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
