// Package identity holds the conventions applied to user identifiers
// supplied by the external identity provider.
package identity

import "strings"

// DefaultAdminDomain is the e-mail suffix that marks library staff.
const DefaultAdminDomain = "@admin.library.kr"

// IsAdmin reports whether email belongs to the admin domain.  The match is
// case-insensitive and requires something before the domain.
func IsAdmin(email, domain string) bool {
	if domain == "" {
		domain = DefaultAdminDomain
	}
	email = strings.ToLower(strings.TrimSpace(email))
	domain = strings.ToLower(domain)
	if !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}
	return len(email) > len(domain) && strings.HasSuffix(email, domain)
}
