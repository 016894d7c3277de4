package handler

import (
	"net/http"
	"strconv"

	"farmastock/internal/apierror"
	"farmastock/internal/service"

	"github.com/gin-gonic/gin"
)

type BodegasHandler struct{ svc service.RecepcionService }

func NewBodegasHandler(svc service.RecepcionService) *BodegasHandler {
	return &BodegasHandler{svc: svc}
}

// Ocupacion godoc
// @Summary      Ocupación de bodega
// @Description  Devuelve la ocupación derivada de una bodega sin tomar bloqueos.
// @Tags         bodegas
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "ID de la bodega"
// @Success      200 {object} dto.OcupacionBodegaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/bodegas/{id}/ocupacion [get]
func (h *BodegasHandler) Ocupacion(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}

	resp, err := h.svc.OcupacionBodega(c.Request.Context(), alcanceDesdeClaims(c), id)
	if err != nil {
		responderErrorRecepcion(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
