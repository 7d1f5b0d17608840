package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "tourhub/pkg/errors"
)

const (
	HeaderTotalCount = "X-Total-Count"
	HeaderTotalPages = "X-Total-Pages"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message,omitempty"`
	Data       any                    `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Code       string                 `json:"code,omitempty"`
	Errors     []apperrors.FieldError `json:"errors,omitempty"`
	Details    map[string]any         `json:"details,omitempty"`
	Pagination *Pagination            `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) *Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func WriteSuccessMessage(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func WriteCreated(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func WritePaginated(w http.ResponseWriter, data any, p *Pagination) error {
	w.Header().Set(HeaderTotalCount, strconv.FormatInt(p.Total, 10))
	w.Header().Set(HeaderTotalPages, strconv.Itoa(p.TotalPages))
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: p})
}

// WriteError translates err and writes the failure envelope.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := Translate(err)
	return WriteJSON(w, appErr.StatusCode(), Envelope{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
		Errors:  appErr.Fields,
		Details: appErr.Details,
	})
}
