package stub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/and161185/rideshare/internal/convert"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func detail(msg string) map[string]string { return map[string]string{"detail": msg} }

func errorBody(msg string) map[string]string { return map[string]string{"error": msg} }

func nonField(msg string) map[string][]string {
	return map[string][]string{"non_field_errors": {msg}}
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, detail("Not found."))
}

func forbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "You do not have permission to perform this action."
	}
	writeJSON(w, http.StatusForbidden, detail(msg))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(fmt.Sprintf("JSON parse error - %v", err)))
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		notFound(w)
		return 0, false
	}
	return id, true
}

// paginate writes items as a page envelope. size <= 0 uses the default.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T, size int) {
	if size <= 0 {
		size = pageSize
	}
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	start := (page - 1) * size
	if start > len(items) && page > 1 {
		notFound(w)
		return
	}
	end := min(start+size, len(items))
	out := convert.Page[T]{Count: len(items), Results: items[min(start, len(items)):end]}
	if end < len(items) {
		out.Next = pageLink(r, page+1)
	}
	if page > 1 {
		out.Previous = pageLink(r, page-1)
	}
	writeJSON(w, http.StatusOK, out)
}

func pageLink(r *http.Request, page int) *string {
	u := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
