package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ItemProductoInput describe un producto del lote entrante. Cantidad es la
// unidad que ocupa espacio en bodega.
type ItemProductoInput struct {
	NombreComercial   string  `json:"nombre_comercial"   validate:"required,min=1"`
	NombreGenerico    *string `json:"nombre_generico"`
	CodigoInterno     *string `json:"codigo_interno"`
	CodigoBarras      *string `json:"codigo_barras"`
	FormaFarmaceutica string  `json:"forma_farmaceutica" validate:"required"`
	Concentracion     string  `json:"concentracion"      validate:"required"`
	Presentacion      string  `json:"presentacion"       validate:"required"`
	UnidadMedida      string  `json:"unidad_medida"      validate:"required"`
	Cantidad          int     `json:"cantidad"           validate:"required,gt=0"`
	StockMinimo       int     `json:"stock_minimo"       validate:"min=0"`
	StockMaximo       int     `json:"stock_maximo"       validate:"min=0"`
}

// LoteInput son los datos comunes del lote entrante. Las fechas llegan como
// "2006-01-02". NumeroLote es opcional: se genera si falta.
type LoteInput struct {
	NumeroLote       *string `json:"numero_lote"`
	FechaFabricacion string  `json:"fecha_fabricacion" validate:"required"`
	FechaVencimiento string  `json:"fecha_vencimiento" validate:"required"`
	Estado           string  `json:"estado"`
	Observaciones    *string `json:"observaciones"`
	IDProveedor      int64   `json:"id_proveedor"      validate:"required,gt=0"`
}

// RecepcionRequest es el cuerpo de POST /lotes/recepcion.
type RecepcionRequest struct {
	Lote struct {
		LoteInput
		IDBodega int64 `json:"id_bodega" validate:"required,gt=0"`
	} `json:"lote" validate:"required"`
	Items []ItemProductoInput `json:"items" validate:"required,min=1,dive"`
}

// DistribucionInput asigna un subconjunto de items a una bodega concreta.
type DistribucionInput struct {
	IDBodega int64               `json:"id_bodega" validate:"required,gt=0"`
	Items    []ItemProductoInput `json:"items"     validate:"required,min=1,dive"`
}

// RecepcionDistribuidaRequest es el cuerpo de POST /lotes/recepcion-distribuida.
type RecepcionDistribuidaRequest struct {
	LoteBase       LoteInput           `json:"lote_base"      validate:"required"`
	Distribuciones []DistribucionInput `json:"distribuciones" validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// RecepcionExitosa es la respuesta 200 de una recepción simple confirmada.
type RecepcionExitosa struct {
	IDLote           int64   `json:"id_lote"`
	NumeroLote       string  `json:"numero_lote"`
	IDBodega         int64   `json:"id_bodega"`
	ProductosCreados []int64 `json:"productos_creados"`
	TotalUnidades    int     `json:"total_unidades"`
	Message          string  `json:"message"`
}

// AsignacionSugerida es una entrada del plan de distribución propuesto.
// OcupacionResultantePct solo se informa para bodegas secundarias.
type AsignacionSugerida struct {
	IDBodega               int64            `json:"id_bodega"`
	Nombre                 string           `json:"nombre"`
	Tipo                   string           `json:"tipo"`
	Cantidad               int              `json:"cantidad"`
	OcupacionResultantePct *decimal.Decimal `json:"ocupacion_resultante_pct,omitempty"`
}

// SugerenciasDistribucion acompaña un conflicto de capacidad: cómo repartir
// el excedente entre bodegas hermanas. Es una sugerencia, no una reserva.
type SugerenciasDistribucion struct {
	BodegaPrincipal    AsignacionSugerida   `json:"bodega_principal"`
	BodegasSecundarias []AsignacionSugerida `json:"bodegas_secundarias"`
	Mensaje            string               `json:"mensaje"`
}

// ConflictoCapacidad es el cuerpo 409 de una recepción simple rechazada por
// capacidad insuficiente en la bodega destino, con plan sugerido.
type ConflictoCapacidad struct {
	Error                   string                  `json:"error"` // "capacidad_insuficiente"
	BodegaID                int64                   `json:"bodega_id"`
	BodegaNombre            string                  `json:"bodega_nombre"`
	CapacidadDisponible     int                     `json:"capacidad_disponible"`
	CapacidadRequerida      int                     `json:"capacidad_requerida"`
	Excedente               int                     `json:"excedente"`
	SugerenciasDistribucion SugerenciasDistribucion `json:"sugerencias_distribucion"`
}

// SucursalAgotada es el cuerpo 507: ninguna combinación de bodegas de la
// sucursal cubre la demanda.
type SucursalAgotada struct {
	Error                    string `json:"error"` // "capacidad_sucursal_agotada"
	Mensaje                  string `json:"mensaje"`
	CapacidadRequerida       int    `json:"capacidad_requerida"`
	CapacidadTotalDisponible int    `json:"capacidad_total_disponible"`
	Deficit                  int    `json:"deficit"`
}

// ResultadoRecepcion es el resultado etiquetado del coordinador de recepción.
// Exactamente uno de los tres punteros es no-nil; el call-site debe manejar
// los tres casos de forma explícita.
type ResultadoRecepcion struct {
	Exito     *RecepcionExitosa
	Conflicto *ConflictoCapacidad
	Agotada   *SucursalAgotada
}

// LoteCreado es una entrada del manifiesto de recepción distribuida.
type LoteCreado struct {
	IDLote       int64  `json:"id_lote"`
	NumeroLote   string `json:"numero_lote"`
	IDBodega     int64  `json:"id_bodega"`
	BodegaNombre string `json:"bodega_nombre"`
	Unidades     int    `json:"unidades"`
}

// ManifiestoDistribucion es la respuesta 200 de una recepción distribuida
// confirmada: todos los sub-lotes, sus productos y el total repartido.
type ManifiestoDistribucion struct {
	NumeroLoteBase    string       `json:"numero_lote_base"`
	LotesCreados      []LoteCreado `json:"lotes_creados"`
	ProductosCreados  []int64      `json:"productos_creados"`
	TotalProductos    int          `json:"total_productos"`
	TotalUnidades     int          `json:"total_unidades"`
	BodegasUtilizadas int          `json:"bodegas_utilizadas"`
	Message           string       `json:"message"`
}

// DistribucionInvalida es el cuerpo 409 cuando un plan confirmado ya no
// cabe al momento de ejecutarlo: nombra la primera bodega que falló.
type DistribucionInvalida struct {
	Error               string `json:"error"` // "distribucion_invalida"
	BodegaID            int64  `json:"bodega_id"`
	BodegaNombre        string `json:"bodega_nombre"`
	CapacidadDisponible int    `json:"capacidad_disponible"`
	CapacidadRequerida  int    `json:"capacidad_requerida"`
	Faltante            int    `json:"faltante"`
	Mensaje             string `json:"mensaje"`
}
