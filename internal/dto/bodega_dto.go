package dto

import "github.com/shopspring/decimal"

// OcupacionBodegaResponse es la lectura (sin bloqueo) de la ocupación
// derivada de una bodega, para UIs que consultan antes de recibir.
type OcupacionBodegaResponse struct {
	IDBodega     int64           `json:"id_bodega"`
	Nombre       string          `json:"nombre"`
	Tipo         string          `json:"tipo"`
	Capacidad    int             `json:"capacidad"`
	Ocupacion    int             `json:"ocupacion"`
	Disponible   int             `json:"disponible"`
	OcupacionPct decimal.Decimal `json:"ocupacion_pct"`
}
