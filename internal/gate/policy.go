package gate

import (
	"strings"

	"gptcatalog/internal/model"
)

// Outcome is the gate decision for a request.
type Outcome string

const (
	PassThrough     Outcome = "pass"
	RedirectLogin   Outcome = "login"
	RedirectPaywall Outcome = "paywall"
)

const (
	// ProtectedRoot is the catalog page that requires an elevated role.
	ProtectedRoot = "/"
	LoginPath     = "/login"
	SignupPath    = "/signup"
	PaywallPath   = "/paywall"
)

// ExemptSet lists paths that bypass the gate without a token check.
type ExemptSet struct {
	Prefixes []string
	Exact    []string
}

// DefaultExemptSet covers build and static assets, icons, the favicon, the
// API namespace and the login, signup and paywall pages.
func DefaultExemptSet() ExemptSet {
	return ExemptSet{
		Prefixes: []string{"/_next/", "/static/", "/icons/", "/api/"},
		Exact:    []string{LoginPath, SignupPath, PaywallPath, "/favicon.ico"},
	}
}

// Matches reports whether path is exempt.
func (s ExemptSet) Matches(path string) bool {
	for _, exact := range s.Exact {
		if path == exact {
			return true
		}
	}
	for _, prefix := range s.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Rule maps a (path, role) pair to an outcome.
type Rule struct {
	Path    string
	Role    model.Role
	Outcome Outcome
}

// Policy is the role table evaluated for authenticated requests. Fallback
// applies to every (role, path) pair without a rule.
type Policy struct {
	Rules    []Rule
	Fallback Outcome
}

// DefaultPolicy sends guests on the protected root to the paywall and lets
// invited and paid users through. Unmatched pairs pass.
func DefaultPolicy() Policy {
	return Policy{
		Rules: []Rule{
			{Path: ProtectedRoot, Role: model.RoleGuest, Outcome: RedirectPaywall},
			{Path: ProtectedRoot, Role: model.RoleInvited, Outcome: PassThrough},
			{Path: ProtectedRoot, Role: model.RolePaid, Outcome: PassThrough},
		},
		Fallback: PassThrough,
	}
}

// WithFallback returns a copy of p using fallback for unmatched pairs.
func (p Policy) WithFallback(fallback Outcome) Policy {
	rules := make([]Rule, len(p.Rules))
	copy(rules, p.Rules)
	return Policy{Rules: rules, Fallback: fallback}
}

// Evaluate returns the outcome for role at path.
func (p Policy) Evaluate(role model.Role, path string) Outcome {
	for _, r := range p.Rules {
		if r.Path == path && r.Role == role {
			return r.Outcome
		}
	}
	return p.Fallback
}
