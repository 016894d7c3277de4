package handler

import (
	"errors"
	"net/http"

	"farmastock/internal/apierror"
	"farmastock/internal/dto"
	"farmastock/internal/middleware"
	"farmastock/internal/repository"
	"farmastock/internal/service"

	"github.com/gin-gonic/gin"
)

type LotesHandler struct{ svc service.RecepcionService }

func NewLotesHandler(svc service.RecepcionService) *LotesHandler { return &LotesHandler{svc: svc} }

// Recibir godoc
// @Summary      Recepción simple de lote
// @Description  Recibe un lote en una bodega con verificación de capacidad bajo bloqueo pesimista. En conflicto devuelve un plan de distribución sugerido.
// @Tags         lotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RecepcionRequest true "Lote e items a recibir"
// @Success      200  {object} dto.RecepcionExitosa
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} dto.ConflictoCapacidad
// @Failure      503  {object} apierror.APIError
// @Failure      507  {object} dto.SucursalAgotada
// @Router       /v1/lotes/recepcion [post]
func (h *LotesHandler) Recibir(c *gin.Context) {
	var req dto.RecepcionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resultado, err := h.svc.Recibir(c.Request.Context(), alcanceDesdeClaims(c), req)
	if err != nil {
		responderErrorRecepcion(c, err)
		return
	}

	switch {
	case resultado.Exito != nil:
		c.JSON(http.StatusOK, resultado.Exito)
	case resultado.Conflicto != nil:
		c.JSON(http.StatusConflict, resultado.Conflicto)
	case resultado.Agotada != nil:
		c.JSON(http.StatusInsufficientStorage, resultado.Agotada)
	default:
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}

// RecibirDistribuida godoc
// @Summary      Recepción distribuida multi-bodega
// @Description  Crea sub-lotes en varias bodegas de la misma sucursal en una sola transacción todo-o-nada, con bloqueos en orden determinista.
// @Tags         lotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RecepcionDistribuidaRequest true "Lote base y distribución explícita"
// @Success      200  {object} dto.ManifiestoDistribucion
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} dto.DistribucionInvalida
// @Failure      503  {object} apierror.APIError
// @Router       /v1/lotes/recepcion-distribuida [post]
func (h *LotesHandler) RecibirDistribuida(c *gin.Context) {
	var req dto.RecepcionDistribuidaRequest
	if !bindAndValidate(c, &req) {
		return
	}

	manifiesto, err := h.svc.RecibirDistribuida(c.Request.Context(), alcanceDesdeClaims(c), req)
	if err != nil {
		responderErrorRecepcion(c, err)
		return
	}
	c.JSON(http.StatusOK, manifiesto)
}

// alcanceDesdeClaims construye el alcance de sucursal a partir del JWT.
func alcanceDesdeClaims(c *gin.Context) service.Alcance {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Alcance{}
	}
	return service.Alcance{IDSucursal: claims.IDSucursal}
}

// responderErrorRecepcion traduce errores tipados del servicio a códigos HTTP.
func responderErrorRecepcion(c *gin.Context, err error) {
	var ev *service.ErrValidacion
	var edi *service.ErrDistribucionInvalida

	switch {
	case errors.Is(err, service.ErrProveedorNoEncontrado),
		errors.Is(err, service.ErrBodegaNoEncontrada):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))

	case errors.Is(err, service.ErrBodegaFueraDeAlcance):
		c.JSON(http.StatusForbidden, apierror.New(err.Error()))

	case errors.As(err, &ev):
		c.JSON(http.StatusBadRequest, apierror.New(ev.Motivo))

	case errors.As(err, &edi):
		c.JSON(http.StatusConflict, dto.DistribucionInvalida{
			Error:               "distribucion_invalida",
			BodegaID:            edi.IDBodega,
			BodegaNombre:        edi.BodegaNombre,
			CapacidadDisponible: edi.Disponible,
			CapacidadRequerida:  edi.Requerido,
			Faltante:            edi.Requerido - edi.Disponible,
			Mensaje:             "la distribución ya no cabe; recalcular y reintentar",
		})

	case errors.Is(err, repository.ErrBloqueoExpirado):
		c.Header("Retry-After", "2")
		c.JSON(http.StatusServiceUnavailable, apierror.New("Bodega ocupada por otra operación. Intente nuevamente."))

	default:
		c.Error(err) //nolint:errcheck
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}
