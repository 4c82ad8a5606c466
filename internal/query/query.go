// Package query owns the canonical encoding between the employee listing's
// URL query string and models.EmployeeQuery. The URL is the single source of
// truth for the visible list state, so parsing never rejects: malformed or
// unknown values are normalized to defaults to keep hand-edited URLs working.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"hrms/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	dateLayout = "2006-01-02"
)

// Parse builds a normalized EmployeeQuery from URL values. Every field of the
// result is usable as-is: enums are validated, numbers clamped, dates checked.
func Parse(v url.Values) models.EmployeeQuery {
	q := models.EmployeeQuery{
		Search:       strings.TrimSpace(v.Get("search")),
		JoinDateFrom: parseDate(v.Get("joinDateFrom")),
		JoinDateTo:   parseDate(v.Get("joinDateTo")),
		SortBy:       models.SortByFullName,
		SortOrder:    models.SortAsc,
		Page:         1,
		Limit:        DefaultLimit,
	}
	if d := models.Department(v.Get("department")); d.Valid() {
		q.Department = d
	}
	if s := models.EmployeeStatus(v.Get("status")); s.Valid() {
		q.Status = s
	}
	if sb := v.Get("sortBy"); sb == models.SortByJoinDate {
		q.SortBy = sb
	}
	if so := v.Get("sortOrder"); so == models.SortDesc {
		q.SortOrder = so
	}
	if p, err := strconv.Atoi(v.Get("page")); err == nil && p > 0 {
		q.Page = p
	}
	if l, err := strconv.Atoi(v.Get("limit")); err == nil {
		if l < 1 {
			l = 1
		}
		if l > MaxLimit {
			l = MaxLimit
		}
		q.Limit = l
	}
	return q
}

// Encode is the inverse of Parse for normalized queries: defaults are
// omitted so encoded URLs stay shareable and minimal, and
// Parse(Encode(q)) == q for any q produced by Parse.
func Encode(q models.EmployeeQuery) url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Department != "" {
		v.Set("department", string(q.Department))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.JoinDateFrom != "" {
		v.Set("joinDateFrom", q.JoinDateFrom)
	}
	if q.JoinDateTo != "" {
		v.Set("joinDateTo", q.JoinDateTo)
	}
	if q.SortBy != models.SortByFullName {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != models.SortAsc {
		v.Set("sortOrder", q.SortOrder)
	}
	v.Set("page", strconv.Itoa(q.Page))
	if q.Limit != DefaultLimit {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Merge applies a set of parameter updates to an existing query. An empty
// update value removes the parameter. Any change that does not itself set
// "page" resets the result to page 1, so filter and sort changes always land
// the caller back on the first page.
func Merge(q models.EmployeeQuery, updates url.Values) models.EmployeeQuery {
	v := Encode(q)
	for key, vals := range updates {
		val := ""
		if len(vals) > 0 {
			val = vals[0]
		}
		if val == "" {
			v.Del(key)
			continue
		}
		v.Set(key, val)
	}
	if updates.Get("page") == "" {
		v.Set("page", "1")
	}
	return Parse(v)
}

func parseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return ""
	}
	return s
}
