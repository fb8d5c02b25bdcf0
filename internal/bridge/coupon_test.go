package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storelink/affbridge/internal/models"
)

func TestCouponCodeFromCode(t *testing.T) {
	a := models.Affiliate{ID: "10", Code: "café#10", Name: "ignored"}
	assert.Equal(t, "CAFE10", CouponCode(a))
}

func TestCouponCodeFromName(t *testing.T) {
	a := models.Affiliate{ID: "7", Name: "João da Silva"}
	assert.Equal(t, "JOAODASILVA", CouponCode(a))
}

func TestCouponCodeFallback(t *testing.T) {
	assert.Equal(t, "AFF99", CouponCode(models.Affiliate{ID: "99"}))
	// no code, no name, no id: generic fallback form
	assert.Equal(t, "AFF", CouponCode(models.Affiliate{}))
}

func TestCouponCodeSymbolsOnly(t *testing.T) {
	a := models.Affiliate{ID: "5", Code: "!!! ***"}
	assert.Equal(t, "AFF5", CouponCode(a))
}

func TestCouponCodeTruncation(t *testing.T) {
	a := models.Affiliate{ID: "1", Name: "abcdefghijklmnopqrstuvwxyz"}
	code := CouponCode(a)
	assert.Len(t, code, 20)
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRST", code)
}

func TestCouponCodeDeterministic(t *testing.T) {
	a := models.Affiliate{ID: "3", Code: "Männer-Rabatt 20"}
	first := CouponCode(a)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CouponCode(a))
	}
	assert.Equal(t, "MANNERRABATT20", first)
}
