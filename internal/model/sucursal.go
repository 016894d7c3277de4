package model

import "time"

// Sucursal es la unidad organizativa dueña de un conjunto de bodegas.
type Sucursal struct {
	IDSucursal    int64     `gorm:"column:id_sucursal;primaryKey;autoIncrement" json:"id_sucursal"`
	Nombre        string    `gorm:"not null" json:"nombre"`
	Direccion     string    `json:"direccion"`
	Telefono      string    `json:"telefono"`
	Ciudad        string    `json:"ciudad"`
	Estado        bool      `gorm:"not null;default:true" json:"estado"`
	FechaCreacion time.Time `gorm:"column:fecha_creacion;autoCreateTime" json:"fecha_creacion"`

	Bodegas []Bodega `gorm:"foreignKey:IDSucursal" json:"-"`
}

func (Sucursal) TableName() string { return "sucursales" }
