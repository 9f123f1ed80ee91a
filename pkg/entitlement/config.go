package entitlement

import "time"

type Config struct {
	SigningSecret string        `env:"ENTITLEMENT_SIGNING_SECRET,required"`   // SigningSecret keys the HMAC used to sign entitlement tokens.
	CacheTTL      time.Duration `env:"ENTITLEMENT_CACHE_TTL" envDefault:"5m"` // CacheTTL bounds how long resolved entitlements stay cached. Values under 60s are raised to the floor.
	CatalogPath   string        `env:"ENTITLEMENT_CATALOG_PATH"`              // CatalogPath optionally points at a YAML catalog overriding the built-in plans.
}
