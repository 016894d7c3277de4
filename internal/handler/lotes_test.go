package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmastock/internal/dto"
	"farmastock/internal/middleware"
	"farmastock/internal/repository"
	"farmastock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRecepcionService devuelve respuestas fijas para probar el mapeo de
// códigos HTTP del handler.
type stubRecepcionService struct {
	resultado  *dto.ResultadoRecepcion
	manifiesto *dto.ManifiestoDistribucion
	err        error
}

func (s *stubRecepcionService) Recibir(_ context.Context, _ service.Alcance, _ dto.RecepcionRequest) (*dto.ResultadoRecepcion, error) {
	return s.resultado, s.err
}

func (s *stubRecepcionService) RecibirDistribuida(_ context.Context, _ service.Alcance, _ dto.RecepcionDistribuidaRequest) (*dto.ManifiestoDistribucion, error) {
	return s.manifiesto, s.err
}

func (s *stubRecepcionService) OcupacionBodega(_ context.Context, _ service.Alcance, _ int64) (*dto.OcupacionBodegaResponse, error) {
	return nil, s.err
}

var _ service.RecepcionService = (*stubRecepcionService)(nil)

func cuerpoRecepcionValido() []byte {
	body := map[string]interface{}{
		"lote": map[string]interface{}{
			"numero_lote":       "LB-1",
			"fecha_fabricacion": "2026-01-10",
			"fecha_vencimiento": "2028-01-10",
			"id_proveedor":      1,
			"id_bodega":         1,
		},
		"items": []map[string]interface{}{{
			"nombre_comercial":   "Acetaminofén 500mg",
			"forma_farmaceutica": "Tableta",
			"concentracion":      "500mg",
			"presentacion":       "Caja x 100",
			"unidad_medida":      "unidad",
			"cantidad":           10,
		}},
	}
	b, _ := json.Marshal(body)
	return b
}

func ejecutarRecibir(t *testing.T, svc service.RecepcionService, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.ClaimsKey, &middleware.JWTClaims{Rol: "administrador"})
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/lotes/recepcion", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	NewLotesHandler(svc).Recibir(c)
	return w
}

func TestRecibirHandler_CodigosPorResultado(t *testing.T) {
	casos := []struct {
		nombre    string
		resultado *dto.ResultadoRecepcion
		status    int
	}{
		{"exito", &dto.ResultadoRecepcion{Exito: &dto.RecepcionExitosa{NumeroLote: "LB-1"}}, http.StatusOK},
		{"conflicto", &dto.ResultadoRecepcion{Conflicto: &dto.ConflictoCapacidad{Error: "capacidad_insuficiente"}}, http.StatusConflict},
		{"agotada", &dto.ResultadoRecepcion{Agotada: &dto.SucursalAgotada{Error: "capacidad_sucursal_agotada"}}, http.StatusInsufficientStorage},
	}
	for _, tc := range casos {
		t.Run(tc.nombre, func(t *testing.T) {
			w := ejecutarRecibir(t, &stubRecepcionService{resultado: tc.resultado}, cuerpoRecepcionValido())
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRecibirHandler_CodigosPorError(t *testing.T) {
	casos := []struct {
		nombre string
		err    error
		status int
	}{
		{"bodega no encontrada", service.ErrBodegaNoEncontrada, http.StatusNotFound},
		{"proveedor no encontrado", service.ErrProveedorNoEncontrado, http.StatusNotFound},
		{"fuera de alcance", service.ErrBodegaFueraDeAlcance, http.StatusForbidden},
		{"validacion", &service.ErrValidacion{Motivo: "fechas incoherentes"}, http.StatusBadRequest},
		{"distribucion invalida", &service.ErrDistribucionInvalida{IDBodega: 2, Disponible: 5, Requerido: 30}, http.StatusConflict},
		{"bloqueo expirado", repository.ErrBloqueoExpirado, http.StatusServiceUnavailable},
	}
	for _, tc := range casos {
		t.Run(tc.nombre, func(t *testing.T) {
			w := ejecutarRecibir(t, &stubRecepcionService{err: tc.err}, cuerpoRecepcionValido())
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRecibirHandler_RetryAfterEnBloqueo(t *testing.T) {
	w := ejecutarRecibir(t, &stubRecepcionService{err: repository.ErrBloqueoExpirado}, cuerpoRecepcionValido())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestRecibirHandler_JSONInvalido(t *testing.T) {
	w := ejecutarRecibir(t, &stubRecepcionService{}, []byte("{no es json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecibirHandler_ValidacionDeCampos(t *testing.T) {
	// cantidad = 0 viola gt=0.
	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(cuerpoRecepcionValido(), &req))
	items := req["items"].([]interface{})
	items[0].(map[string]interface{})["cantidad"] = 0
	b, _ := json.Marshal(req)

	w := ejecutarRecibir(t, &stubRecepcionService{}, b)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
