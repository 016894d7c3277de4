package service

import (
	"errors"
	"fmt"
)

var (
	ErrProveedorNoEncontrado = errors.New("proveedor no encontrado")
	ErrBodegaNoEncontrada    = errors.New("bodega no encontrada")
	ErrBodegaFueraDeAlcance  = errors.New("bodega fuera del alcance de la sucursal del usuario")
)

// ErrValidacion cubre rechazos de negocio detectables antes de tomar
// bloqueos: fechas incoherentes, número de lote duplicado, bodega inactiva.
type ErrValidacion struct{ Motivo string }

func (e *ErrValidacion) Error() string { return e.Motivo }

func validacion(format string, args ...interface{}) error {
	return &ErrValidacion{Motivo: fmt.Sprintf(format, args...)}
}

// ErrDistribucionInvalida señala que una distribución explícita ya no cabe
// al momento de ejecutarla: nombra la primera bodega que falló bajo bloqueo.
type ErrDistribucionInvalida struct {
	IDBodega     int64
	BodegaNombre string
	Disponible   int
	Requerido    int
}

func (e *ErrDistribucionInvalida) Error() string {
	return fmt.Sprintf("bodega %d (%s) sin capacidad: disponible %d, requerido %d",
		e.IDBodega, e.BodegaNombre, e.Disponible, e.Requerido)
}
