package webhook

import "regexp"

// Kind is the routing decision for an inbound event. Anything not recognized
// maps to KindIgnored and is acknowledged without side effects.
type Kind int

const (
	KindIgnored Kind = iota
	KindOrderSync
	KindAffiliateSync
)

// ClassifyCommerce matches commerce events exactly: only the three order
// events below trigger a sync, every other event (order/* included) is
// accepted and dropped.
func ClassifyCommerce(event string) Kind {
	switch event {
	case "order/paid", "order/created", "order/updated":
		return KindOrderSync
	}
	return KindIgnored
}

// The affiliate platform's webhook event naming is not stable, so
// classification is a loose case-insensitive pattern match: the event must
// look affiliate-related and look like a create/update/approve. Once the
// vocabulary is confirmed this is the one place to swap in a closed enum.
var (
	affiliateEventPattern  = regexp.MustCompile(`(?i)affiliate`)
	affiliateActionPattern = regexp.MustCompile(`(?i)(created|create|signup|updated|update|approved)`)
)

func ClassifyAffiliate(event string) Kind {
	if affiliateEventPattern.MatchString(event) && affiliateActionPattern.MatchString(event) {
		return KindAffiliateSync
	}
	return KindIgnored
}
