package http

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxBodyBytes caps JSON request bodies. Uploads have their own limit.
const maxBodyBytes = 1 << 20

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// monthParam reads the month query parameter, falling back to the month
// containing now when absent or malformed.
func monthParam(r *http.Request, now time.Time) string {
	m := strings.TrimSpace(r.URL.Query().Get("month"))
	if monthPattern.MatchString(m) {
		return m
	}
	return now.Format("2006-01")
}

// pageParam reads a 1-based page number, defaulting to 1.
func pageParam(r *http.Request) int {
	v := strings.TrimSpace(r.URL.Query().Get("page"))
	if v == "" {
		return 1
	}
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 {
		return 1
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
