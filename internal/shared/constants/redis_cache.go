package constants

import (
	"time"
)

// Redis Cache Configuration
// Pattern: ticketing:{module}:{operation}:{identifier}
//
// Remaining capacity is never cached; only the static tier catalog is.

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // 2 hours - for event details
	TTL_SEMI_STATIC_QUICK  = 15 * time.Minute // 15 minutes - for tier catalogs
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "ticketing"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:uuid:" // + event-id
)

const (
	TTL_EVENT_DETAIL = TTL_SEMI_STATIC_MEDIUM // 2 hours
)

// ================== TIERS MODULE ==================

const (
	CACHE_KEY_TIER_CATALOG = CACHE_PREFIX + ":tiers:catalog:event:" // + event-id
)

const (
	TTL_TIER_CATALOG = TTL_SEMI_STATIC_QUICK // 15 minutes
)

// ================== RATE LIMIT ==================

const (
	RATE_LIMIT_KEY_PREFIX = CACHE_PREFIX + ":ratelimit:" // + client-ip:type
)

// ================== HELPER FUNCTIONS ==================

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildTierCatalogKey(eventID string) string {
	return CACHE_KEY_TIER_CATALOG + eventID
}

func BuildRateLimitKey(clientIP, limitType string) string {
	return RATE_LIMIT_KEY_PREFIX + clientIP + ":" + limitType
}
