package model

// Proveedor es el origen comercial de los lotes recibidos.
type Proveedor struct {
	IDProveedor int64  `gorm:"column:id_proveedor;primaryKey;autoIncrement" json:"id_proveedor"`
	Nombre      string `gorm:"not null" json:"nombre"`
	NIT         string `gorm:"column:nit;uniqueIndex;not null" json:"nit"`
	Telefono    string `json:"telefono"`
	Email       string `json:"email"`
	Direccion   string `json:"direccion"`
	Ciudad      string `json:"ciudad"`
	Estado      bool   `gorm:"not null;default:true" json:"estado"`

	Lotes []Lote `gorm:"foreignKey:IDProveedor" json:"-"`
}

func (Proveedor) TableName() string { return "proveedores" }
