// Package binding decodes posted forms into view models, accepting only an
// explicit allow-list of field names.
package binding

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/render"
)

// CustomerFields are the CustomerViewModel fields a client may post.
// CreatedOn is server-assigned.
var CustomerFields = []string{"CustomerId", "CustomerName", "Email", "Balance"}

// Filter returns the values whose key is in allowed. Matching is
// case-sensitive.
func Filter(values url.Values, allowed []string) url.Values {
	kept := url.Values{}
	for key, vals := range values {
		if slices.Contains(allowed, key) {
			kept[key] = vals
		}
	}
	return kept
}

// Form parses the request form and decodes the allow-listed keys into dst.
// Fields of dst that are not posted, or not allowed, keep their values.
func Form(r *http.Request, dst any, allowed []string) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}

	kept := Filter(r.Form, allowed)
	if dropped := len(r.Form) - len(kept); dropped > 0 {
		log.Debug("Ignored form fields outside allow-list", "path", r.URL.Path, "count", dropped)
	}

	// Blank values would fail numeric decoding; treat them as not posted.
	for key, vals := range kept {
		if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
			delete(kept, key)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	if err := render.DecodeForm(strings.NewReader(kept.Encode()), dst); err != nil {
		return fmt.Errorf("failed to bind form: %w", err)
	}
	return nil
}
