package repository

import (
	"context"
	"time"

	"farmastock/internal/model"

	"gorm.io/gorm"
)

// LoteRepository defines the data access contract for lots and their
// products. Writes happen inside transactions owned by the service layer.
type LoteRepository interface {
	// CreateTx inserta el lote y sus productos en cascada dentro de tx.
	CreateTx(ctx context.Context, tx *gorm.DB, l *model.Lote) error

	FindByID(ctx context.Context, id int64) (*model.Lote, error)
	FindByNumero(ctx context.Context, numero string) (*model.Lote, error)
	ExisteNumero(ctx context.Context, numero string) (bool, error)

	// MarcarVencidos pasa a Vencido todo lote Activo cuya fecha de
	// vencimiento ya pasó. Devuelve cuántas filas cambiaron.
	MarcarVencidos(ctx context.Context, hoy time.Time) (int64, error)

	// Transaction abre una transacción y ejecuta fn dentro de ella.
	// Los bloqueos de fila tomados por fn se liberan al terminar.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	DB() *gorm.DB
}

type loteRepo struct{ db *gorm.DB }

func NewLoteRepository(db *gorm.DB) LoteRepository { return &loteRepo{db: db} }

func (r *loteRepo) DB() *gorm.DB { return r.db }

func (r *loteRepo) CreateTx(ctx context.Context, tx *gorm.DB, l *model.Lote) error {
	return tx.WithContext(ctx).Create(l).Error
}

func (r *loteRepo) FindByID(ctx context.Context, id int64) (*model.Lote, error) {
	var l model.Lote
	err := r.db.WithContext(ctx).Preload("Productos").First(&l, id).Error
	return &l, err
}

func (r *loteRepo) FindByNumero(ctx context.Context, numero string) (*model.Lote, error) {
	var l model.Lote
	err := r.db.WithContext(ctx).Where("numero_lote = ?", numero).First(&l).Error
	return &l, err
}

func (r *loteRepo) ExisteNumero(ctx context.Context, numero string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Lote{}).
		Where("numero_lote = ?", numero).Count(&count).Error
	return count > 0, err
}

func (r *loteRepo) MarcarVencidos(ctx context.Context, hoy time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Lote{}).
		Where("estado = ? AND fecha_vencimiento < ?", model.LoteEstadoActivo, hoy.Format("2006-01-02")).
		Update("estado", model.LoteEstadoVencido)
	return res.RowsAffected, res.Error
}

func (r *loteRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
