package control

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// secretFrom extracts the presented shared secret. X-Bot-Secret wins over a
// bearer token.
func secretFrom(r *http.Request) string {
	if s := r.Header.Get("X-Bot-Secret"); s != "" {
		return s
	}
	auth := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

// secretMatch compares in constant time against the accepted set. Hashing
// first keeps the comparison constant time across differing lengths.
func secretMatch(presented string, accepted []string) bool {
	got := sha256.Sum256([]byte(presented))
	ok := false
	for _, s := range accepted {
		want := sha256.Sum256([]byte(s))
		if subtle.ConstantTimeCompare(got[:], want[:]) == 1 {
			ok = true
		}
	}
	return ok
}

// requireAuth gates a handler behind the shared-secret check. With
// enforcement off it passes everything through. Enforcement on with no
// secret configured is a deployment mistake: rejected in production,
// allowed with a warning in test mode.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.AuthRequired {
			next.ServeHTTP(w, r)
			return
		}

		accepted := make([]string, 0, 2)
		for _, sec := range []string{s.cfg.SharedSecret, s.cfg.SharedSecretPrev} {
			if sec != "" {
				accepted = append(accepted, sec)
			}
		}
		if len(accepted) == 0 {
			if s.cfg.TestMode {
				s.log.Warn("auth required but no shared secret configured, allowing request in test mode")
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		presented := secretFrom(r)
		if presented == "" || !secretMatch(presented, accepted) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
