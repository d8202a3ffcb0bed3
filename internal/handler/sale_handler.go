package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService   service.SaleService
	returnService service.ReturnService
	accessService service.AccessService
}

func NewSaleHandler(saleService service.SaleService, returnService service.ReturnService, accessService service.AccessService) *SaleHandler {
	return &SaleHandler{
		saleService:   saleService,
		returnService: returnService,
		accessService: accessService,
	}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/api")
	{
		sales.GET("/sales", middleware.RequireAuth(), h.ListSales)
		sales.POST("/sales", middleware.RequireAuth(), h.CreateSale)
		sales.GET("/sales/:id", middleware.RequireAuth(), h.GetSale)
		sales.GET("/returns", middleware.RequireAuth(), h.ListReturns)
		sales.POST("/returns", middleware.RequireAuth(), h.CreateReturn)
	}
}

// CreateSale commits a multi-item sale against inventory
// @Summary      Create sale
// @Description  Validates and commits a multi-item sale, decrementing inventory and recording stock movements atomically
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleRequest  true  "Create Sale Payload"
// @Success      201      {object}  response.Response{data=model.Sale}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	sale, err := h.saleService.CreateSale(c.Request.Context(), actor, scope, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// GetSale retrieves one sale with its items
// @Summary      Get sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=model.Sale}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// ListSales retrieves paginated sales reachable by the caller
// @Summary      List sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Param        pharmacy_id  query  string  false  "Filter by pharmacy"
// @Param        start_date   query  string  false  "Filter from date (YYYY-MM-DD)"
// @Param        end_date     query  string  false  "Filter to date (YYYY-MM-DD)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	sales, total, err := h.saleService.ListSales(c.Request.Context(), scope, service.ListSalesFilter{
		PharmacyID: c.Query("pharmacy_id"),
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"sales": sales,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// CreateReturn reverses items of a prior sale
// @Summary      Create sale return
// @Description  Validates and commits a return, re-crediting inventory and recording stock movements atomically
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateReturnRequest  true  "Create Return Payload"
// @Success      201      {object}  response.Response{data=model.SaleReturn}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/returns [post]
func (h *SaleHandler) CreateReturn(c *gin.Context) {
	var req service.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	ret, err := h.returnService.CreateReturn(c.Request.Context(), actor, scope, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, ret))
}

// ListReturns retrieves paginated sale returns reachable by the caller
// @Summary      List sale returns
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Param        pharmacy_id  query  string  false  "Filter by pharmacy"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/returns [get]
func (h *SaleHandler) ListReturns(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	returns, total, err := h.returnService.ListReturns(c.Request.Context(), scope, c.Query("pharmacy_id"), params.Page, params.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"returns": returns,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}
