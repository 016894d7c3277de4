package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"farmastock/internal/dto"
	"farmastock/internal/model"
	"farmastock/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubDB is the shared in-memory state behind the repository stubs. The mutex
// emulates row locks held until the end of the transaction: Transaction takes
// it and releases it when fn returns, serializing concurrent receptions.
// Methods that run inside the transaction (CreateTx, OcupacionConBloqueo)
// execute with the mutex already held and must not lock again; every method
// reachable from pre-flight code locks it itself.
type stubDB struct {
	mu          sync.Mutex
	bodegas     map[int64]*model.Bodega
	ocupacion   map[int64]int
	lotes       map[string]*model.Lote
	proveedores map[int64]*model.Proveedor
	loteSeq     int64
	prodSeq     int64
}

func newStubDB() *stubDB {
	return &stubDB{
		bodegas:     make(map[int64]*model.Bodega),
		ocupacion:   make(map[int64]int),
		lotes:       make(map[string]*model.Lote),
		proveedores: make(map[int64]*model.Proveedor),
	}
}

func (s *stubDB) addBodega(id, sucursal int64, nombre string, capacidad, ocupacion int) {
	s.bodegas[id] = &model.Bodega{
		IDBodega:   id,
		IDSucursal: sucursal,
		Nombre:     nombre,
		Tipo:       model.BodegaTipoSecundaria,
		Capacidad:  capacidad,
		Estado:     true,
	}
	s.ocupacion[id] = ocupacion
}

type stubBodegaRepo struct{ db *stubDB }

func (r *stubBodegaRepo) FindByID(_ context.Context, id int64) (*model.Bodega, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bodegas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (r *stubBodegaRepo) OcupacionConBloqueo(_ context.Context, _ *gorm.DB, id int64) (*model.Bodega, int, error) {
	b, ok := r.db.bodegas[id]
	if !ok {
		return nil, 0, gorm.ErrRecordNotFound
	}
	return b, r.db.ocupacion[id], nil
}

func (r *stubBodegaRepo) Ocupacion(_ context.Context, id int64) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.ocupacion[id], nil
}

func (r *stubBodegaRepo) AlternativasEnSucursal(_ context.Context, idSucursal, excluir int64) ([]repository.BodegaConOcupacion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []repository.BodegaConOcupacion
	var ids []int64
	for id := range r.db.bodegas {
		ids = append(ids, id)
	}
	// Orden ascendente estable, como la consulta real.
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	for _, id := range ids {
		b := r.db.bodegas[id]
		if b.IDSucursal != idSucursal || b.IDBodega == excluir || !b.Estado {
			continue
		}
		out = append(out, repository.BodegaConOcupacion{Bodega: *b, Ocupacion: r.db.ocupacion[id]})
	}
	return out, nil
}

func (r *stubBodegaRepo) DB() *gorm.DB { return nil }

var _ repository.BodegaRepository = (*stubBodegaRepo)(nil)

type stubLoteRepo struct{ db *stubDB }

func (r *stubLoteRepo) CreateTx(_ context.Context, _ *gorm.DB, l *model.Lote) error {
	// Misma garantía que el índice único sobre numero_lote.
	if _, ok := r.db.lotes[l.NumeroLote]; ok {
		return errors.New("duplicate key value violates unique constraint \"idx_lotes_numero_lote\"")
	}
	r.db.loteSeq++
	l.IDLote = r.db.loteSeq
	total := 0
	for i := range l.Productos {
		r.db.prodSeq++
		l.Productos[i].IDProducto = r.db.prodSeq
		l.Productos[i].IDLote = l.IDLote
		total += l.Productos[i].Cantidad
	}
	r.db.lotes[l.NumeroLote] = l
	if l.IDBodega != nil {
		r.db.ocupacion[*l.IDBodega] += total
	}
	return nil
}

func (r *stubLoteRepo) FindByID(_ context.Context, id int64) (*model.Lote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.lotes {
		if l.IDLote == id {
			return l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubLoteRepo) FindByNumero(_ context.Context, numero string) (*model.Lote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.lotes[numero]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return l, nil
}

func (r *stubLoteRepo) ExisteNumero(_ context.Context, numero string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.lotes[numero]
	return ok, nil
}

func (r *stubLoteRepo) MarcarVencidos(_ context.Context, hoy time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, l := range r.db.lotes {
		if l.Estado == model.LoteEstadoActivo && l.FechaVencimiento.Before(hoy) {
			l.Estado = model.LoteEstadoVencido
			n++
		}
	}
	return n, nil
}

func (r *stubLoteRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return fn(nil)
}

func (r *stubLoteRepo) DB() *gorm.DB { return nil }

var _ repository.LoteRepository = (*stubLoteRepo)(nil)

type stubProveedorRepo struct{ db *stubDB }

func (r *stubProveedorRepo) FindByID(_ context.Context, id int64) (*model.Proveedor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.proveedores[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProveedorRepo) DB() *gorm.DB { return nil }

var _ repository.ProveedorRepository = (*stubProveedorRepo)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

func newTestService(db *stubDB) RecepcionService {
	db.proveedores[1] = &model.Proveedor{IDProveedor: 1, Nombre: "Laboratorios Rivera", NIT: "900123456"}
	return NewRecepcionService(&stubLoteRepo{db: db}, &stubBodegaRepo{db: db}, &stubProveedorRepo{db: db}, nil)
}

func itemsDe(cantidades ...int) []dto.ItemProductoInput {
	var items []dto.ItemProductoInput
	for _, c := range cantidades {
		items = append(items, dto.ItemProductoInput{
			NombreComercial:   "Acetaminofén 500mg",
			FormaFarmaceutica: "Tableta",
			Concentracion:     "500mg",
			Presentacion:      "Caja x 100",
			UnidadMedida:      "unidad",
			Cantidad:          c,
		})
	}
	return items
}

func recepcionSimple(idBodega int64, numero string, cantidades ...int) dto.RecepcionRequest {
	var req dto.RecepcionRequest
	req.Lote.LoteInput = loteInput(numero)
	req.Lote.IDBodega = idBodega
	req.Items = itemsDe(cantidades...)
	return req
}

func loteInput(numero string) dto.LoteInput {
	in := dto.LoteInput{
		FechaFabricacion: "2026-01-10",
		FechaVencimiento: "2028-01-10",
		IDProveedor:      1,
	}
	if numero != "" {
		in.NumeroLote = &numero
	}
	return in
}

// ── Recepción simple ─────────────────────────────────────────────────────────

func TestRecibir_Exito(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 20)
	svc := newTestService(db)

	res, err := svc.Recibir(context.Background(), Alcance{}, recepcionSimple(1, "LB-100", 30, 20))
	require.NoError(t, err)
	require.NotNil(t, res.Exito)

	assert.Equal(t, "LB-100", res.Exito.NumeroLote)
	assert.Equal(t, int64(1), res.Exito.IDBodega)
	assert.Equal(t, 50, res.Exito.TotalUnidades)
	assert.Len(t, res.Exito.ProductosCreados, 2)
	assert.Equal(t, 70, db.ocupacion[1])

	l := db.lotes["LB-100"]
	require.NotNil(t, l)
	assert.Equal(t, model.LoteEstadoActivo, l.Estado)
}

func TestRecibir_GeneraNumeroCuandoFalta(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 0)
	svc := newTestService(db)

	res, err := svc.Recibir(context.Background(), Alcance{}, recepcionSimple(1, "", 10))
	require.NoError(t, err)
	require.NotNil(t, res.Exito)
	assert.Regexp(t, `^LT-\d{8}-[0-9a-f]{8}$`, res.Exito.NumeroLote)
}

func TestRecibir_ConflictoConPlanSugerido(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 90) // disponible 10
	db.addBodega(2, 1, "Bodega Norte", 100, 0)    // disponible 100
	svc := newTestService(db)

	res, err := svc.Recibir(context.Background(), Alcance{}, recepcionSimple(1, "LB-200", 50))
	require.NoError(t, err)
	require.NotNil(t, res.Conflicto)

	c := res.Conflicto
	assert.Equal(t, "capacidad_insuficiente", c.Error)
	assert.Equal(t, int64(1), c.BodegaID)
	assert.Equal(t, 10, c.CapacidadDisponible)
	assert.Equal(t, 50, c.CapacidadRequerida)
	assert.Equal(t, 40, c.Excedente)

	assert.Equal(t, 10, c.SugerenciasDistribucion.BodegaPrincipal.Cantidad)
	require.Len(t, c.SugerenciasDistribucion.BodegasSecundarias, 1)
	sec := c.SugerenciasDistribucion.BodegasSecundarias[0]
	assert.Equal(t, int64(2), sec.IDBodega)
	assert.Equal(t, 40, sec.Cantidad)
	require.NotNil(t, sec.OcupacionResultantePct)

	// Nada persistido y la ocupación no cambió.
	assert.Empty(t, db.lotes)
	assert.Equal(t, 90, db.ocupacion[1])
}

func TestRecibir_SucursalAgotada(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 50, 45)
	db.addBodega(2, 1, "Bodega Norte", 30, 28)
	svc := newTestService(db)

	res, err := svc.Recibir(context.Background(), Alcance{}, recepcionSimple(1, "LB-300", 40))
	require.NoError(t, err)
	require.NotNil(t, res.Agotada)

	a := res.Agotada
	assert.Equal(t, "capacidad_sucursal_agotada", a.Error)
	assert.Equal(t, 40, a.CapacidadRequerida)
	assert.Equal(t, 7, a.CapacidadTotalDisponible)
	assert.Equal(t, 33, a.Deficit)
	assert.Empty(t, db.lotes)
}

func TestRecibir_ErroresDeResolucion(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 0)
	svc := newTestService(db)
	ctx := context.Background()

	// Bodega inexistente.
	_, err := svc.Recibir(ctx, Alcance{}, recepcionSimple(99, "LB-1", 10))
	assert.ErrorIs(t, err, ErrBodegaNoEncontrada)

	// Proveedor inexistente.
	req := recepcionSimple(1, "LB-2", 10)
	req.Lote.IDProveedor = 99
	_, err = svc.Recibir(ctx, Alcance{}, req)
	assert.ErrorIs(t, err, ErrProveedorNoEncontrado)

	// Fuera de alcance de sucursal.
	otra := int64(7)
	_, err = svc.Recibir(ctx, Alcance{IDSucursal: &otra}, recepcionSimple(1, "LB-3", 10))
	assert.ErrorIs(t, err, ErrBodegaFueraDeAlcance)
}

func TestRecibir_Validaciones(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 0)
	svc := newTestService(db)
	ctx := context.Background()

	var ev *ErrValidacion

	// Vencimiento anterior a fabricación.
	req := recepcionSimple(1, "LB-1", 10)
	req.Lote.FechaVencimiento = "2020-01-01"
	_, err := svc.Recibir(ctx, Alcance{}, req)
	assert.ErrorAs(t, err, &ev)

	// Estado no recibible.
	req = recepcionSimple(1, "LB-1", 10)
	req.Lote.Estado = model.LoteEstadoVencido
	_, err = svc.Recibir(ctx, Alcance{}, req)
	assert.ErrorAs(t, err, &ev)

	// Número de lote duplicado.
	_, err = svc.Recibir(ctx, Alcance{}, recepcionSimple(1, "LB-DUP", 10))
	require.NoError(t, err)
	_, err = svc.Recibir(ctx, Alcance{}, recepcionSimple(1, "LB-DUP", 10))
	assert.ErrorAs(t, err, &ev)

	// Bodega inactiva.
	db.bodegas[1].Estado = false
	_, err = svc.Recibir(ctx, Alcance{}, recepcionSimple(1, "LB-9", 10))
	assert.ErrorAs(t, err, &ev)
}

// Dos recepciones concurrentes compiten por la misma capacidad: solo una
// puede confirmar. La segunda ve la ocupación ya actualizada bajo bloqueo.
func TestRecibir_ConcurrenciaSinSobrecupo(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 0)
	svc := newTestService(db)

	var wg sync.WaitGroup
	resultados := make([]*dto.ResultadoRecepcion, 2)
	errores := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			numero := []string{"LB-A", "LB-B"}[i]
			resultados[i], errores[i] = svc.Recibir(context.Background(), Alcance{}, recepcionSimple(1, numero, 60))
		}(i)
	}
	wg.Wait()
	require.NoError(t, errores[0])
	require.NoError(t, errores[1])

	exitos := 0
	for _, res := range resultados {
		if res.Exito != nil {
			exitos++
		}
	}
	assert.Equal(t, 1, exitos)
	assert.Equal(t, 60, db.ocupacion[1])
	assert.Len(t, db.lotes, 1)
}

// El pre-vuelo de una recepción (unicidad de número, resolución de bodega y
// proveedor) corre sin bloqueos mientras otras recepciones confirman. Muchas
// recepciones compitiendo por el mismo número no deben corromper estado:
// exactamente una gana y el resto falla en el pre-vuelo o contra el índice
// único, nunca con un duplicado persistido.
func TestRecibir_PrevueloConcurrenteConCommit(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 1000, 0)
	svc := newTestService(db)

	const intentos = 20
	var wg sync.WaitGroup
	errores := make([]error, intentos)

	for i := 0; i < intentos; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errores[i] = svc.Recibir(context.Background(), Alcance{}, recepcionSimple(1, "LB-RACE", 10))
		}(i)
	}
	wg.Wait()

	confirmadas := 0
	for _, err := range errores {
		if err == nil {
			confirmadas++
		}
	}
	assert.Equal(t, 1, confirmadas)
	assert.Len(t, db.lotes, 1)
	assert.Equal(t, 10, db.ocupacion[1])
}

// ── Recepción distribuida ────────────────────────────────────────────────────

func recepcionDistribuida(numeroBase string, partes map[int64]int) dto.RecepcionDistribuidaRequest {
	req := dto.RecepcionDistribuidaRequest{LoteBase: loteInput(numeroBase)}
	var ids []int64
	for id := range partes {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	for _, id := range ids {
		req.Distribuciones = append(req.Distribuciones, dto.DistribucionInput{
			IDBodega: id,
			Items:    itemsDe(partes[id]),
		})
	}
	return req
}

func TestRecibirDistribuida_Exito(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 50)
	db.addBodega(2, 1, "Bodega Norte", 100, 0)
	svc := newTestService(db)

	m, err := svc.RecibirDistribuida(context.Background(), Alcance{},
		recepcionDistribuida("LB-500", map[int64]int{1: 50, 2: 70}))
	require.NoError(t, err)

	assert.Equal(t, "LB-500", m.NumeroLoteBase)
	assert.Equal(t, 2, m.BodegasUtilizadas)
	assert.Equal(t, 120, m.TotalUnidades)
	assert.Equal(t, 2, m.TotalProductos)
	require.Len(t, m.LotesCreados, 2)

	// Sub-lotes con sufijo por iniciales de la bodega.
	assert.Equal(t, "LB-500-SBC", m.LotesCreados[0].NumeroLote)
	assert.Equal(t, "LB-500-SBN", m.LotesCreados[1].NumeroLote)

	assert.Equal(t, 100, db.ocupacion[1])
	assert.Equal(t, 70, db.ocupacion[2])
}

func TestRecibirDistribuida_TodoONada(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 0)
	db.addBodega(2, 1, "Bodega Norte", 50, 45) // solo caben 5
	svc := newTestService(db)

	_, err := svc.RecibirDistribuida(context.Background(), Alcance{},
		recepcionDistribuida("LB-600", map[int64]int{1: 20, 2: 30}))

	var edi *ErrDistribucionInvalida
	require.ErrorAs(t, err, &edi)
	assert.Equal(t, int64(2), edi.IDBodega)
	assert.Equal(t, 5, edi.Disponible)
	assert.Equal(t, 30, edi.Requerido)

	// Ni siquiera la bodega con espacio recibió nada.
	assert.Empty(t, db.lotes)
	assert.Equal(t, 0, db.ocupacion[1])
}

func TestRecibirDistribuida_Validaciones(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 100, 0)
	db.addBodega(2, 2, "Bodega Sur", 100, 0) // otra sucursal
	svc := newTestService(db)
	ctx := context.Background()

	var ev *ErrValidacion

	// Bodega repetida.
	req := recepcionDistribuida("LB-700", map[int64]int{1: 10})
	req.Distribuciones = append(req.Distribuciones, req.Distribuciones[0])
	_, err := svc.RecibirDistribuida(ctx, Alcance{}, req)
	assert.ErrorAs(t, err, &ev)

	// Bodegas de sucursales distintas.
	_, err = svc.RecibirDistribuida(ctx, Alcance{}, recepcionDistribuida("LB-701", map[int64]int{1: 10, 2: 10}))
	assert.ErrorAs(t, err, &ev)
}

// ── Ocupación ────────────────────────────────────────────────────────────────

func TestOcupacionBodega(t *testing.T) {
	db := newStubDB()
	db.addBodega(1, 1, "Bodega Central", 200, 50)
	svc := newTestService(db)

	resp, err := svc.OcupacionBodega(context.Background(), Alcance{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Capacidad)
	assert.Equal(t, 50, resp.Ocupacion)
	assert.Equal(t, 150, resp.Disponible)
	assert.Equal(t, "25", resp.OcupacionPct.String())

	_, err = svc.OcupacionBodega(context.Background(), Alcance{}, 99)
	assert.ErrorIs(t, err, ErrBodegaNoEncontrada)
}
