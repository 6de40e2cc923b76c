package model

// SessionSnapshot is the persistent copy of the backend session tokens.
type SessionSnapshot struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    *int64 `json:"expiresAt"`
}

// SameSession reports whether a and b carry identical token material.
// This is an equivalence relation: reflexive, symmetric, transitive.
func SameSession(a, b SessionSnapshot) bool {
	if a.AccessToken != b.AccessToken || a.RefreshToken != b.RefreshToken {
		return false
	}
	if (a.ExpiresAt == nil) != (b.ExpiresAt == nil) {
		return false
	}
	if a.ExpiresAt != nil && *a.ExpiresAt != *b.ExpiresAt {
		return false
	}
	return true
}

// Empty reports whether neither token is set.
func (s SessionSnapshot) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}
