package repository

import (
	"context"
	"errors"
	"fmt"

	"farmastock/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBloqueoExpirado indica que el bloqueo de fila no se obtuvo dentro del
// lock_timeout configurado. Los handlers lo traducen a 503 (reintentable).
var ErrBloqueoExpirado = errors.New("bodega bloqueada por otra operación")

// pgLockNotAvailable es el SQLSTATE que PostgreSQL emite cuando expira
// lock_timeout (55P03).
const pgLockNotAvailable = "55P03"

// BodegaRepository defines the data access contract for warehouses and their
// derived occupancy. Services depend on this interface, not on the concrete
// GORM implementation, enabling clean unit testing via mocks.
type BodegaRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Bodega, error)

	// OcupacionConBloqueo toma un bloqueo pesimista (SELECT ... FOR UPDATE)
	// sobre la fila de la bodega y devuelve la bodega junto con su ocupación
	// derivada. El bloqueo queda retenido hasta el fin de la transacción.
	// Devuelve ErrBloqueoExpirado si el bloqueo no se obtiene a tiempo.
	OcupacionConBloqueo(ctx context.Context, tx *gorm.DB, id int64) (*model.Bodega, int, error)

	// Ocupacion es la lectura sin bloqueo, para consultas y sugerencias.
	Ocupacion(ctx context.Context, id int64) (int, error)

	// AlternativasEnSucursal devuelve las demás bodegas activas de la misma
	// sucursal, con su ocupación derivada, para el planificador.
	AlternativasEnSucursal(ctx context.Context, idSucursal, excluirBodega int64) ([]BodegaConOcupacion, error)

	DB() *gorm.DB
}

// BodegaConOcupacion empaqueta una bodega con su ocupación ya calculada.
type BodegaConOcupacion struct {
	Bodega    model.Bodega
	Ocupacion int
}

type bodegaRepo struct {
	db                 *gorm.DB
	lockTimeoutSeconds int
}

func NewBodegaRepository(db *gorm.DB, lockTimeoutSeconds int) BodegaRepository {
	if lockTimeoutSeconds <= 0 {
		lockTimeoutSeconds = 5
	}
	return &bodegaRepo{db: db, lockTimeoutSeconds: lockTimeoutSeconds}
}

func (r *bodegaRepo) DB() *gorm.DB { return r.db }

func (r *bodegaRepo) FindByID(ctx context.Context, id int64) (*model.Bodega, error) {
	var b model.Bodega
	err := r.db.WithContext(ctx).First(&b, id).Error
	return &b, err
}

func (r *bodegaRepo) OcupacionConBloqueo(ctx context.Context, tx *gorm.DB, id int64) (*model.Bodega, int, error) {
	// SET LOCAL limita el alcance del timeout a la transacción actual.
	if err := tx.WithContext(ctx).
		Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%ds'", r.lockTimeoutSeconds)).Error; err != nil {
		return nil, 0, err
	}

	var b model.Bodega
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, id).Error
	if err != nil {
		if esBloqueoExpirado(err) {
			return nil, 0, ErrBloqueoExpirado
		}
		return nil, 0, err
	}

	ocupacion, err := sumarOcupacion(ctx, tx, id)
	if err != nil {
		if esBloqueoExpirado(err) {
			return nil, 0, ErrBloqueoExpirado
		}
		return nil, 0, err
	}
	return &b, ocupacion, nil
}

func (r *bodegaRepo) Ocupacion(ctx context.Context, id int64) (int, error) {
	return sumarOcupacion(ctx, r.db, id)
}

func (r *bodegaRepo) AlternativasEnSucursal(ctx context.Context, idSucursal, excluirBodega int64) ([]BodegaConOcupacion, error) {
	var bodegas []model.Bodega
	err := r.db.WithContext(ctx).
		Where("id_sucursal = ? AND id_bodega <> ? AND estado = true", idSucursal, excluirBodega).
		Order("id_bodega ASC").
		Find(&bodegas).Error
	if err != nil {
		return nil, err
	}

	out := make([]BodegaConOcupacion, 0, len(bodegas))
	for _, b := range bodegas {
		occ, err := sumarOcupacion(ctx, r.db, b.IDBodega)
		if err != nil {
			return nil, err
		}
		out = append(out, BodegaConOcupacion{Bodega: b, Ocupacion: occ})
	}
	return out, nil
}

// sumarOcupacion deriva la ocupación: suma de cantidades de productos cuyos
// lotes están en un estado que ocupa espacio y apuntan a la bodega dada.
func sumarOcupacion(ctx context.Context, db *gorm.DB, idBodega int64) (int, error) {
	var total int64
	err := db.WithContext(ctx).Model(&model.Producto{}).
		Joins("JOIN lotes ON lotes.id_lote = productos.id_lote").
		Where("lotes.id_bodega = ? AND lotes.estado IN ?", idBodega, model.EstadosQueOcupan).
		Select("COALESCE(SUM(productos.cantidad), 0)").
		Scan(&total).Error
	return int(total), err
}

func esBloqueoExpirado(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}
