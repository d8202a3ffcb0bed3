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

type MedicineHandler struct {
	medicineService service.MedicineService
	accessService   service.AccessService
}

func NewMedicineHandler(medicineService service.MedicineService, accessService service.AccessService) *MedicineHandler {
	return &MedicineHandler{medicineService: medicineService, accessService: accessService}
}

func (h *MedicineHandler) RegisterRoutes(router *gin.RouterGroup) {
	medicines := router.Group("/api")
	{
		medicines.GET("/medicines", middleware.RequireAuth(), h.ListMedicines)
		medicines.POST("/medicines", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.CreateMedicine)
		medicines.GET("/medicines/:id", middleware.RequireAuth(), h.GetMedicine)
	}
}

// CreateMedicine registers a medicine in the shared catalog
// @Summary      Create medicine
// @Tags         medicines
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMedicineRequest  true  "Create Medicine Payload"
// @Success      201      {object}  response.Response{data=model.Medicine}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/medicines [post]
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	var req service.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid actor identity"))
		return
	}

	medicine, err := h.medicineService.CreateMedicine(c.Request.Context(), actor, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, medicine))
}

// GetMedicine retrieves one catalog medicine
// @Summary      Get medicine
// @Tags         medicines
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Medicine ID"
// @Success      200  {object}  response.Response{data=model.Medicine}
// @Failure      404  {object}  response.Response
// @Router       /api/medicines/{id} [get]
func (h *MedicineHandler) GetMedicine(c *gin.Context) {
	medicine, err := h.medicineService.GetMedicine(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicine))
}

// ListMedicines retrieves the paginated medicine catalog
// @Summary      List medicines
// @Tags         medicines
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Param        search  query  string  false  "Search by name or generic name"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/medicines [get]
func (h *MedicineHandler) ListMedicines(c *gin.Context) {
	params := pagination.Parse(c)
	medicines, total, err := h.medicineService.ListMedicines(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"medicines": medicines,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}
