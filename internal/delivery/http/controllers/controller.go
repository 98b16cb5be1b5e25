// Package controllers holds the HTTP handlers. Each controller owns one domain service.
package controllers

import (
	"net/http"

	"eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/delivery/http/middleware"
	"eventsphere/internal/domain"
)

// actorFrom returns the authenticated actor or writes a 401.
func actorFrom(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return domain.Actor{}, false
	}
	return actor, true
}

// DeleteResponse is the response body for delete endpoints.
type DeleteResponse struct {
	Status string `json:"status"`
}
