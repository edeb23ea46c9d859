package testutil

import (
	"net/http"

	id "ahorro/pkg/domain"
	"ahorro/pkg/requestcontext"
)

// WithPrincipal stores the caller on the request context the way the auth
// middleware does, for calling handler methods directly.
func WithPrincipal(req *http.Request, principal id.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), principal))
}

// WithBearer sets the Authorization header for requests routed through auth.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
