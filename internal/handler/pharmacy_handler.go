package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PharmacyHandler struct {
	pharmacyService service.PharmacyService
	accessService   service.AccessService
}

func NewPharmacyHandler(pharmacyService service.PharmacyService, accessService service.AccessService) *PharmacyHandler {
	return &PharmacyHandler{pharmacyService: pharmacyService, accessService: accessService}
}

func (h *PharmacyHandler) RegisterRoutes(router *gin.RouterGroup) {
	pharmacies := router.Group("/api")
	{
		pharmacies.GET("/pharmacies", middleware.RequireAuth(), h.ListPharmacies)
		pharmacies.POST("/pharmacies", middleware.RequireRole(model.RoleAdmin), h.CreatePharmacy)
		pharmacies.GET("/pharmacies/:id", middleware.RequireAuth(), h.GetPharmacy)
		pharmacies.PUT("/pharmacies/:id", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.UpdatePharmacy)
		pharmacies.DELETE("/pharmacies/:id", middleware.RequireRole(model.RoleAdmin), h.DeletePharmacy)
	}
}

// CreatePharmacy registers a new pharmacy branch
// @Summary      Create pharmacy
// @Tags         pharmacies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePharmacyRequest  true  "Create Pharmacy Payload"
// @Success      201      {object}  response.Response{data=model.Pharmacy}
// @Failure      400      {object}  response.Response
// @Router       /api/pharmacies [post]
func (h *PharmacyHandler) CreatePharmacy(c *gin.Context) {
	var req service.CreatePharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid actor identity"))
		return
	}

	pharmacy, err := h.pharmacyService.CreatePharmacy(c.Request.Context(), actor, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, pharmacy))
}

// GetPharmacy retrieves one pharmacy reachable by the caller
// @Summary      Get pharmacy
// @Tags         pharmacies
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Pharmacy ID"
// @Success      200  {object}  response.Response{data=model.Pharmacy}
// @Failure      404  {object}  response.Response
// @Router       /api/pharmacies/{id} [get]
func (h *PharmacyHandler) GetPharmacy(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	pharmacy, err := h.pharmacyService.GetPharmacy(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pharmacy))
}

// ListPharmacies retrieves paginated pharmacies reachable by the caller
// @Summary      List pharmacies
// @Tags         pharmacies
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/pharmacies [get]
func (h *PharmacyHandler) ListPharmacies(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	pharmacies, total, err := h.pharmacyService.ListPharmacies(c.Request.Context(), scope, params.Page, params.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"pharmacies": pharmacies,
		"total":      total,
		"page":       params.Page,
		"limit":      params.Limit,
	}))
}

// UpdatePharmacy updates a pharmacy's details and manager assignments
// @Summary      Update pharmacy
// @Tags         pharmacies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Pharmacy ID"
// @Param        payload  body      service.UpdatePharmacyRequest  true  "Update Pharmacy Payload"
// @Success      200      {object}  response.Response{data=model.Pharmacy}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/pharmacies/{id} [put]
func (h *PharmacyHandler) UpdatePharmacy(c *gin.Context) {
	var req service.UpdatePharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid actor identity"))
		return
	}

	pharmacy, err := h.pharmacyService.UpdatePharmacy(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pharmacy))
}

// DeletePharmacy removes a pharmacy
// @Summary      Delete pharmacy
// @Tags         pharmacies
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Pharmacy ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/pharmacies/{id} [delete]
func (h *PharmacyHandler) DeletePharmacy(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid actor identity"))
		return
	}

	if err := h.pharmacyService.DeletePharmacy(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]string{"message": "Pharmacy deleted"}))
}
