package bridge

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/storelink/affbridge/internal/models"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// CouponCode derives the coupon code for an affiliate: existing code, else
// display name, else "AFF"+id. Accents are decomposed and dropped, everything
// outside ASCII alphanumerics stripped, uppercased, capped at 20 chars.
// Deterministic, no I/O.
func CouponCode(a models.Affiliate) string {
	fallback := "AFF" + a.ID.String()
	base := a.Code
	if base == "" {
		base = a.Name
	}
	if base == "" {
		base = fallback
	}
	// chained transformers carry state, so build a fresh one per call
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if s, _, err := transform.String(stripMarks, base); err == nil {
		base = s
	}
	base = strings.ToUpper(nonAlnum.ReplaceAllString(base, ""))
	if len(base) > 20 {
		base = base[:20]
	}
	if base == "" {
		return fallback
	}
	return base
}
