package model

// Tipos de bodega reconocidos por la farmacia.
const (
	BodegaTipoPrincipal  = "Principal"
	BodegaTipoSecundaria = "Secundaria"
	BodegaTipoTransito   = "De tránsito"
)

// Bodega es una ubicación física de almacenamiento con capacidad fija en
// unidades. La ocupación NUNCA se almacena: se deriva sumando las cantidades
// de productos de lotes Activo / En tránsito asignados a la bodega.
// Invariante: ocupacion(b) <= b.Capacidad después de cada transacción
// confirmada, incluso bajo recepciones concurrentes.
type Bodega struct {
	IDBodega    int64   `gorm:"column:id_bodega;primaryKey;autoIncrement" json:"id_bodega"`
	IDSucursal  int64   `gorm:"column:id_sucursal;not null;index" json:"id_sucursal"`
	Nombre      string  `gorm:"not null" json:"nombre"`
	Descripcion *string `json:"descripcion,omitempty"`
	Tipo        string  `gorm:"not null" json:"tipo"`
	Capacidad   int     `gorm:"not null;check:capacidad > 0" json:"capacidad"`
	Ubicacion   *string `json:"ubicacion,omitempty"`
	Estado      bool    `gorm:"not null;default:true" json:"estado"`

	Sucursal *Sucursal `gorm:"foreignKey:IDSucursal" json:"-"`
	Lotes    []Lote    `gorm:"foreignKey:IDBodega" json:"-"`
}

func (Bodega) TableName() string { return "bodegas" }
