package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCommerce(t *testing.T) {
	assert.Equal(t, KindOrderSync, ClassifyCommerce("order/paid"))
	assert.Equal(t, KindOrderSync, ClassifyCommerce("order/created"))
	assert.Equal(t, KindOrderSync, ClassifyCommerce("order/updated"))

	// other order/* events are accepted upstream but not acted on
	assert.Equal(t, KindIgnored, ClassifyCommerce("order/shipped"))
	assert.Equal(t, KindIgnored, ClassifyCommerce("order/cancelled"))
	assert.Equal(t, KindIgnored, ClassifyCommerce("app/uninstalled"))
	assert.Equal(t, KindIgnored, ClassifyCommerce(""))
	// exact match only, no case folding on the commerce side
	assert.Equal(t, KindIgnored, ClassifyCommerce("ORDER/PAID"))
}

func TestClassifyAffiliate(t *testing.T) {
	assert.Equal(t, KindAffiliateSync, ClassifyAffiliate("affiliate_signup"))
	assert.Equal(t, KindAffiliateSync, ClassifyAffiliate("Affiliate Approved"))
	assert.Equal(t, KindAffiliateSync, ClassifyAffiliate("affiliate.created"))
	assert.Equal(t, KindAffiliateSync, ClassifyAffiliate("AFFILIATE_UPDATED"))

	// affiliate-looking but not a create/update/approve
	assert.Equal(t, KindIgnored, ClassifyAffiliate("affiliate.deleted"))
	// create/update-looking but not affiliate-related
	assert.Equal(t, KindIgnored, ClassifyAffiliate("payment.created"))
	assert.Equal(t, KindIgnored, ClassifyAffiliate("unknown"))
	assert.Equal(t, KindIgnored, ClassifyAffiliate(""))
}
