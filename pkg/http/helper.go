package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
)

// PageParams is the page/limit pair of a list request.
type PageParams struct {
	Page  int
	Limit int
}

func ExtractPage(r *http.Request) (PageParams, error) {
	query := r.URL.Query()

	page := 1
	if s := query.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return PageParams{}, apperrors.InvalidInput("invalid page parameter: " + s)
		}
		page = v
	}

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return PageParams{}, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	return PageParams{
		Page:  config.NormalizePage(page),
		Limit: config.NormalizePaginationLimit(limit),
	}, nil
}

// DecodeJSON reads a JSON request body into dst. An empty body is rejected.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperrors.InvalidInput("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is required")
		}
		return err
	}
	return nil
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be omitted.
func DecodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func QueryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func QueryBool(r *http.Request, key string) (*bool, error) {
	s := QueryString(r, key)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return &b, nil
}

func QueryFloat(r *http.Request, key string) (*float64, error) {
	s := QueryString(r, key)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return &f, nil
}

func QueryInt(r *http.Request, key string, fallback int) (int, error) {
	s := QueryString(r, key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return n, nil
}

// QueryDate accepts either YYYY-MM-DD or RFC 3339.
func QueryDate(r *http.Request, key string) (*time.Time, error) {
	s := QueryString(r, key)
	if s == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return &t, nil
}

func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
