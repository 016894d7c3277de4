package model

import "time"

// Producto es un ítem farmacéutico perteneciente a un lote. Cantidad es la
// unidad que contribuye a la ocupación de la bodega del lote.
type Producto struct {
	IDProducto        int64     `gorm:"column:id_producto;primaryKey;autoIncrement" json:"id_producto"`
	IDLote            int64     `gorm:"column:id_lote;not null;index" json:"id_lote"`
	NombreComercial   string    `gorm:"column:nombre_comercial;not null" json:"nombre_comercial"`
	NombreGenerico    *string   `gorm:"column:nombre_generico" json:"nombre_generico,omitempty"`
	CodigoInterno     *string   `gorm:"column:codigo_interno" json:"codigo_interno,omitempty"`
	CodigoBarras      *string   `gorm:"column:codigo_barras" json:"codigo_barras,omitempty"`
	FormaFarmaceutica string    `gorm:"column:forma_farmaceutica;not null" json:"forma_farmaceutica"`
	Concentracion     string    `gorm:"not null" json:"concentracion"`
	Presentacion      string    `gorm:"not null" json:"presentacion"`
	UnidadMedida      string    `gorm:"column:unidad_medida;not null" json:"unidad_medida"`
	Cantidad          int       `gorm:"not null;check:cantidad > 0" json:"cantidad"`
	StockMinimo       int       `gorm:"column:stock_minimo;not null;default:0" json:"stock_minimo"`
	StockMaximo       int       `gorm:"column:stock_maximo;not null;default:0" json:"stock_maximo"`
	Estado            bool      `gorm:"not null;default:true" json:"estado"`
	FechaCreacion     time.Time `gorm:"column:fecha_creacion;autoCreateTime" json:"fecha_creacion"`

	Lote *Lote `gorm:"foreignKey:IDLote" json:"-"`
}

func (Producto) TableName() string { return "productos" }
