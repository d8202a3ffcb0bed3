package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// actorAndScope rebuilds the authenticated actor and resolves its pharmacy
// scope exactly once per request. On failure it writes the error response and
// returns false.
func actorAndScope(c *gin.Context, access service.AccessService) (service.Actor, service.PharmacyScope, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid actor identity"))
		return service.Actor{}, service.PharmacyScope{}, false
	}

	scope, err := access.ResolvePharmacyScope(c.Request.Context(), actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to resolve pharmacy access: "+err.Error()))
		return service.Actor{}, service.PharmacyScope{}, false
	}

	return actor, scope, true
}
