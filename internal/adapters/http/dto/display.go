package dto

import (
	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/ports"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

// QuoteParams are the path parameters of GET /api/v1/quotes/:time.
type QuoteParams struct {
	Time string `uri:"time" validate:"required,hhmm"`
}

// QuoteRecord is a dataset record as loaded.
type QuoteRecord struct {
	Time       string `json:"time"`
	Quote      string `json:"quote"`
	TimeString string `json:"timeString"`
	Title      string `json:"title,omitempty"`
	Author     string `json:"author,omitempty"`
}

// QuoteResponse is the body of GET /api/v1/quotes/:time.
type QuoteResponse struct {
	Record QuoteRecord     `json:"record"`
	View   ports.QuoteView `json:"view"`
}

// NewQuoteResponse pairs a dataset record with its fitted view.
func NewQuoteResponse(q domain.Quote, view ports.QuoteView) QuoteResponse {
	return QuoteResponse{
		Record: QuoteRecord{
			Time:       q.Time,
			Quote:      q.Text,
			TimeString: q.TimeString,
			Title:      q.Title,
			Author:     q.Author,
		},
		View: view,
	}
}

// FitRequest is the body of POST /api/v1/fit. Width selects terminal-cell
// geometry fitting; without it the character budget is used.
type FitRequest struct {
	Text     string `json:"text"      validate:"required,nonblank,max=10000"`
	Token    string `json:"token"     validate:"max=200"`
	Budget   int    `json:"budget"    validate:"omitempty,min=10,max=1000"`
	Width    int    `json:"width"     validate:"omitempty,min=20,max=400"`
	MaxLines int    `json:"max_lines" validate:"omitempty,min=1,max=10"`
}

// Fit modes reported in FitResponse.
const (
	FitModeBudget   = "budget"
	FitModeGeometry = "geometry"
)

// FitResponse is the body of POST /api/v1/fit.
type FitResponse struct {
	Mode      string         `json:"mode"`
	Text      string         `json:"text"`
	Truncated bool           `json:"truncated"`
	Spans     []textfit.Span `json:"spans"`
	HTML      string         `json:"html"`
}
