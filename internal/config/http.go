package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"

	CTypeJSON = "application/json"
)

const (
	CookieSession = "session"
)
