package aclkit

// Matcher decides whether allow rules cover a requested
// (resource, permission) target.
//
// A rule matches when its resource set contains the target resource and
// its permission set contains the target token or the "*" wildcard.
// Resource and permission tokens are opaque, case-sensitive strings; the
// matcher never interprets their structure.
type Matcher struct{}

// NewMatcher creates a new Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match checks if a single rule covers the target.
//
// Examples:
//
//	Match({"/secret"}, {"get"}, "/secret", "get")    // true - exact
//	Match({"/secret"}, {"*"}, "/secret", "delete")   // true - wildcard
//	Match({"/secret"}, {"get"}, "/secret", "delete") // false
//	Match({"/secret"}, {"*"}, "/users", "get")       // false - resource miss
func (m *Matcher) Match(rule AllowRule, resource, permission string) bool {
	if !containsToken(rule.Resources, resource) {
		return false
	}
	for _, p := range rule.Permissions {
		if p == Wildcard || p == permission {
			return true
		}
	}
	return false
}

// MatchAny checks if any rule in the set covers the target. The decision
// is a logical OR: one matching rule anywhere grants access.
func (m *Matcher) MatchAny(rules []AllowRule, resource, permission string) bool {
	for _, rule := range rules {
		if m.Match(rule, resource, permission) {
			return true
		}
	}
	return false
}

// PermissionsOn returns the permission tokens the rule set grants on a
// resource. The wildcard is reported as-is.
func (m *Matcher) PermissionsOn(rules []AllowRule, resource string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rule := range rules {
		if !containsToken(rule.Resources, resource) {
			continue
		}
		for _, p := range rule.Permissions {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func containsToken(tokens []string, target string) bool {
	for _, t := range tokens {
		if t == target {
			return true
		}
	}
	return false
}

// DefaultMatcher is the default matcher instance.
var DefaultMatcher = NewMatcher()
