package model

import "time"

// Estados de lote. Solo Activo y En tránsito cuentan para la ocupación
// de bodega.
const (
	LoteEstadoActivo   = "Activo"
	LoteEstadoVencido  = "Vencido"
	LoteEstadoDevuelto = "Devuelto"
	LoteEstadoTransito = "En tránsito"
)

// EstadosQueOcupan son los estados cuyos productos suman a la ocupación.
var EstadosQueOcupan = []string{LoteEstadoActivo, LoteEstadoTransito}

// Lote es un batch de stock recibido de un proveedor. IDBodega es nullable:
// nil significa "sin asignar". Una recepción distribuida crea varios lotes
// hermanos que comparten un número base con sufijo por bodega.
//
// Los lotes se crean únicamente por una recepción exitosa (simple o
// distribuida) y nunca parcialmente: todas las filas o ninguna.
type Lote struct {
	IDLote           int64     `gorm:"column:id_lote;primaryKey;autoIncrement" json:"id_lote"`
	NumeroLote       string    `gorm:"column:numero_lote;uniqueIndex;not null" json:"numero_lote"`
	FechaFabricacion time.Time `gorm:"column:fecha_fabricacion;type:date;not null" json:"fecha_fabricacion"`
	FechaVencimiento time.Time `gorm:"column:fecha_vencimiento;type:date;not null" json:"fecha_vencimiento"`
	Estado           string    `gorm:"not null;index" json:"estado"`
	Observaciones    *string   `json:"observaciones,omitempty"`
	IDProveedor      int64     `gorm:"column:id_proveedor;not null;index" json:"id_proveedor"`
	IDBodega         *int64    `gorm:"column:id_bodega;index" json:"id_bodega"`
	FechaRegistro    time.Time `gorm:"column:fecha_registro;autoCreateTime" json:"fecha_registro"`

	Proveedor *Proveedor `gorm:"foreignKey:IDProveedor" json:"-"`
	Bodega    *Bodega    `gorm:"foreignKey:IDBodega" json:"-"`
	Productos []Producto `gorm:"foreignKey:IDLote" json:"productos,omitempty"`
}

func (Lote) TableName() string { return "lotes" }
