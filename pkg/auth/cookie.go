package auth

import (
	"net/url"
	"strings"
)

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
	// Domain is the cookie domain scope (e.g., ".ekaya.ai" for cross-subdomain sharing).
	Domain string
}

// DeriveCookieSettings determines cookie security settings from the base URL.
//   - http://localhost:3443 → Secure: false, Domain: ""
//   - https://canvas.ekaya.ai → Secure: true, Domain: ".ekaya.ai"
//   - https://canvas.example.com → Secure: true, Domain: "" (host only)
//
// A non-empty configCookieDomain overrides the derived domain.
func DeriveCookieSettings(baseURL string, configCookieDomain string) CookieSettings {
	parsedURL, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		return CookieSettings{Secure: true, Domain: configCookieDomain}
	}

	settings := CookieSettings{Secure: parsedURL.Scheme != "http"}
	if configCookieDomain != "" {
		settings.Domain = configCookieDomain
		return settings
	}

	if hostname := parsedURL.Hostname(); strings.HasSuffix(hostname, ".ekaya.ai") {
		// The web app and the API live on sibling subdomains.
		settings.Domain = ".ekaya.ai"
	}
	return settings
}
