package auth

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "ALLOW"
	}
	return "DENY"
}

// Authorize allows role when it is one of allowed. An empty allowed list
// denies everyone.
func Authorize(role string, allowed []string) Decision {
	for _, r := range allowed {
		if r == role {
			return Allow
		}
	}
	return Deny
}
