package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"farmastock/internal/dto"
	"farmastock/internal/model"
	"farmastock/internal/repository"
	"farmastock/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const formatoFecha = "2006-01-02"

// Alcance limita qué bodegas puede tocar el usuario. IDSucursal nil es un
// administrador sin restricción.
type Alcance struct {
	IDSucursal *int64
}

// Permite reporta si la sucursal dada cae dentro del alcance.
func (a Alcance) Permite(idSucursal int64) bool {
	return a.IDSucursal == nil || *a.IDSucursal == idSucursal
}

type RecepcionService interface {
	// Recibir ejecuta una recepción simple contra una bodega. El resultado
	// es etiquetado: éxito, conflicto de capacidad con plan sugerido, o
	// sucursal agotada.
	Recibir(ctx context.Context, alcance Alcance, req dto.RecepcionRequest) (*dto.ResultadoRecepcion, error)

	// RecibirDistribuida ejecuta una recepción multi-bodega todo-o-nada.
	RecibirDistribuida(ctx context.Context, alcance Alcance, req dto.RecepcionDistribuidaRequest) (*dto.ManifiestoDistribucion, error)

	// OcupacionBodega es la consulta sin bloqueo para UIs.
	OcupacionBodega(ctx context.Context, alcance Alcance, idBodega int64) (*dto.OcupacionBodegaResponse, error)
}

type recepcionService struct {
	lotes      repository.LoteRepository
	bodegas    repository.BodegaRepository
	provs      repository.ProveedorRepository
	dispatcher *worker.Dispatcher
}

func NewRecepcionService(
	lotes repository.LoteRepository,
	bodegas repository.BodegaRepository,
	provs repository.ProveedorRepository,
	dispatcher *worker.Dispatcher,
) RecepcionService {
	return &recepcionService{lotes: lotes, bodegas: bodegas, provs: provs, dispatcher: dispatcher}
}

// ── Recepción simple ─────────────────────────────────────────────────────────

// errConflictoCapacidad fuerza el rollback de la transacción cuando la
// demanda no cabe; el detalle viaja en los campos capturados por el closure.
var errConflictoCapacidad = errors.New("capacidad insuficiente en bodega destino")

func (s *recepcionService) Recibir(ctx context.Context, alcance Alcance, req dto.RecepcionRequest) (*dto.ResultadoRecepcion, error) {
	base, err := s.validarLoteBase(ctx, req.Lote.LoteInput)
	if err != nil {
		return nil, err
	}

	bodega, err := s.resolverBodega(ctx, alcance, req.Lote.IDBodega)
	if err != nil {
		return nil, err
	}

	requerido := totalUnidades(req.Items)

	numero, err := s.resolverNumeroLote(ctx, req.Lote.NumeroLote)
	if err != nil {
		return nil, err
	}

	// Lo observado bajo bloqueo, para armar el 409 fuera de la transacción.
	var (
		ocupacionVista int
		lote           *model.Lote
	)

	txErr := s.lotes.Transaction(ctx, func(tx *gorm.DB) error {
		b, ocupacion, err := s.bodegas.OcupacionConBloqueo(ctx, tx, bodega.IDBodega)
		if err != nil {
			return err
		}
		ocupacionVista = ocupacion
		if ocupacion+requerido > b.Capacidad {
			return errConflictoCapacidad
		}

		l := construirLote(numero, base, &bodega.IDBodega, req.Items)
		if err := s.lotes.CreateTx(ctx, tx, l); err != nil {
			return err
		}
		lote = l
		return nil
	})

	switch {
	case txErr == nil:
		s.invalidar(ctx, "lotes", "productos", "bodegas", "sucursales", "proveedores")
		return &dto.ResultadoRecepcion{Exito: armarExito(lote, requerido)}, nil

	case errors.Is(txErr, errConflictoCapacidad):
		return s.armarConflicto(ctx, bodega, ocupacionVista, requerido)

	default:
		return nil, txErr
	}
}

// armarConflicto construye la respuesta 409/507. Corre fuera de la
// transacción con lecturas sin bloqueo: el plan es una sugerencia que puede
// quedar obsoleta antes de confirmarse.
func (s *recepcionService) armarConflicto(ctx context.Context, bodega *model.Bodega, ocupacion, requerido int) (*dto.ResultadoRecepcion, error) {
	alternativas, err := s.bodegas.AlternativasEnSucursal(ctx, bodega.IDSucursal, bodega.IDBodega)
	if err != nil {
		return nil, err
	}

	principal := DisponibilidadBodega{
		ID:        bodega.IDBodega,
		Nombre:    bodega.Nombre,
		Tipo:      bodega.Tipo,
		Capacidad: bodega.Capacidad,
		Ocupacion: ocupacion,
	}
	alts := make([]DisponibilidadBodega, 0, len(alternativas))
	for _, a := range alternativas {
		alts = append(alts, DisponibilidadBodega{
			ID:        a.Bodega.IDBodega,
			Nombre:    a.Bodega.Nombre,
			Tipo:      a.Bodega.Tipo,
			Capacidad: a.Bodega.Capacidad,
			Ocupacion: a.Ocupacion,
		})
	}

	plan, deficit := PlanificarDistribucion(requerido, principal, alts)
	if deficit != nil {
		return &dto.ResultadoRecepcion{Agotada: &dto.SucursalAgotada{
			Error:                    "capacidad_sucursal_agotada",
			Mensaje:                  "ninguna combinación de bodegas de la sucursal cubre la cantidad solicitada",
			CapacidadRequerida:       deficit.Requerido,
			CapacidadTotalDisponible: deficit.TotalDisponible,
			Deficit:                  deficit.Deficit,
		}}, nil
	}

	disponible := principal.Disponible()
	conflicto := &dto.ConflictoCapacidad{
		Error:               "capacidad_insuficiente",
		BodegaID:            bodega.IDBodega,
		BodegaNombre:        bodega.Nombre,
		CapacidadDisponible: disponible,
		CapacidadRequerida:  requerido,
		Excedente:           requerido - disponible,
		SugerenciasDistribucion: dto.SugerenciasDistribucion{
			BodegaPrincipal: dto.AsignacionSugerida{
				IDBodega: plan.Principal.Bodega.ID,
				Nombre:   plan.Principal.Bodega.Nombre,
				Tipo:     plan.Principal.Bodega.Tipo,
				Cantidad: plan.Principal.Cantidad,
			},
			Mensaje: "distribución sugerida; confirmar vía recepción distribuida",
		},
	}
	for _, sec := range plan.Secundarias {
		pct := sec.OcupacionResultantePct
		conflicto.SugerenciasDistribucion.BodegasSecundarias = append(
			conflicto.SugerenciasDistribucion.BodegasSecundarias,
			dto.AsignacionSugerida{
				IDBodega:               sec.Bodega.ID,
				Nombre:                 sec.Bodega.Nombre,
				Tipo:                   sec.Bodega.Tipo,
				Cantidad:               sec.Cantidad,
				OcupacionResultantePct: &pct,
			})
	}
	return &dto.ResultadoRecepcion{Conflicto: conflicto}, nil
}

// ── Recepción distribuida ────────────────────────────────────────────────────

func (s *recepcionService) RecibirDistribuida(ctx context.Context, alcance Alcance, req dto.RecepcionDistribuidaRequest) (*dto.ManifiestoDistribucion, error) {
	base, err := s.validarLoteBase(ctx, req.LoteBase)
	if err != nil {
		return nil, err
	}

	vistos := make(map[int64]bool, len(req.Distribuciones))
	bodegasDest := make([]*model.Bodega, 0, len(req.Distribuciones))
	var sucursal int64
	for _, d := range req.Distribuciones {
		if vistos[d.IDBodega] {
			return nil, validacion("bodega %d repetida en la distribución", d.IDBodega)
		}
		vistos[d.IDBodega] = true

		b, err := s.resolverBodega(ctx, alcance, d.IDBodega)
		if err != nil {
			return nil, err
		}
		if len(bodegasDest) == 0 {
			sucursal = b.IDSucursal
		} else if b.IDSucursal != sucursal {
			return nil, validacion("todas las bodegas de una distribución deben pertenecer a la misma sucursal")
		}
		bodegasDest = append(bodegasDest, b)
	}

	numeroBase, err := s.resolverNumeroLote(ctx, req.LoteBase.NumeroLote)
	if err != nil {
		return nil, err
	}

	// Sub-lote por destino, con número base + sufijo por bodega.
	type destino struct {
		bodega   *model.Bodega
		items    []dto.ItemProductoInput
		unidades int
		numero   string
	}
	destinos := make([]*destino, 0, len(req.Distribuciones))
	sufijos := make(map[string]int)
	for i, d := range req.Distribuciones {
		b := bodegasDest[i]
		suf := sufijoBodega(b, sufijos)
		numero := numeroBase + "-" + suf
		if existe, err := s.lotes.ExisteNumero(ctx, numero); err != nil {
			return nil, err
		} else if existe {
			return nil, validacion("número de lote %s ya existe", numero)
		}
		destinos = append(destinos, &destino{
			bodega:   b,
			items:    d.Items,
			unidades: totalUnidades(d.Items),
			numero:   numero,
		})
	}

	// Los bloqueos se toman en orden ascendente de id de bodega para evitar
	// deadlocks entre recepciones concurrentes.
	orden := make([]*destino, len(destinos))
	copy(orden, destinos)
	sort.Slice(orden, func(i, j int) bool { return orden[i].bodega.IDBodega < orden[j].bodega.IDBodega })

	lotesCreados := make(map[int64]*model.Lote, len(destinos))
	txErr := s.lotes.Transaction(ctx, func(tx *gorm.DB) error {
		for _, d := range orden {
			b, ocupacion, err := s.bodegas.OcupacionConBloqueo(ctx, tx, d.bodega.IDBodega)
			if err != nil {
				return err
			}
			if ocupacion+d.unidades > b.Capacidad {
				disponible := b.Capacidad - ocupacion
				if disponible < 0 {
					disponible = 0
				}
				return &ErrDistribucionInvalida{
					IDBodega:     b.IDBodega,
					BodegaNombre: b.Nombre,
					Disponible:   disponible,
					Requerido:    d.unidades,
				}
			}
		}
		// Toda la demanda validada bajo bloqueo; recién ahora se escribe.
		for _, d := range orden {
			l := construirLote(d.numero, base, &d.bodega.IDBodega, d.items)
			if err := s.lotes.CreateTx(ctx, tx, l); err != nil {
				return err
			}
			lotesCreados[d.bodega.IDBodega] = l
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.invalidar(ctx, "lotes", "productos", "bodegas", "sucursales", "proveedores")

	manifiesto := &dto.ManifiestoDistribucion{
		NumeroLoteBase:    numeroBase,
		BodegasUtilizadas: len(destinos),
		Message:           "recepción distribuida confirmada",
	}
	for _, d := range destinos {
		l := lotesCreados[d.bodega.IDBodega]
		manifiesto.LotesCreados = append(manifiesto.LotesCreados, dto.LoteCreado{
			IDLote:       l.IDLote,
			NumeroLote:   l.NumeroLote,
			IDBodega:     d.bodega.IDBodega,
			BodegaNombre: d.bodega.Nombre,
			Unidades:     d.unidades,
		})
		for _, p := range l.Productos {
			manifiesto.ProductosCreados = append(manifiesto.ProductosCreados, p.IDProducto)
		}
		manifiesto.TotalProductos += len(l.Productos)
		manifiesto.TotalUnidades += d.unidades
	}
	return manifiesto, nil
}

// ── Consulta de ocupación ────────────────────────────────────────────────────

func (s *recepcionService) OcupacionBodega(ctx context.Context, alcance Alcance, idBodega int64) (*dto.OcupacionBodegaResponse, error) {
	bodega, err := s.resolverBodegaSinEstado(ctx, alcance, idBodega)
	if err != nil {
		return nil, err
	}
	ocupacion, err := s.bodegas.Ocupacion(ctx, idBodega)
	if err != nil {
		return nil, err
	}
	d := DisponibilidadBodega{
		ID:        bodega.IDBodega,
		Nombre:    bodega.Nombre,
		Tipo:      bodega.Tipo,
		Capacidad: bodega.Capacidad,
		Ocupacion: ocupacion,
	}
	return &dto.OcupacionBodegaResponse{
		IDBodega:     d.ID,
		Nombre:       d.Nombre,
		Tipo:         d.Tipo,
		Capacidad:    d.Capacidad,
		Ocupacion:    d.Ocupacion,
		Disponible:   d.Disponible(),
		OcupacionPct: ocupacionPct(d, 0),
	}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// loteBase son los datos del lote ya validados y parseados.
type loteBase struct {
	fabricacion   time.Time
	vencimiento   time.Time
	estado        string
	observaciones *string
	idProveedor   int64
}

func (s *recepcionService) validarLoteBase(ctx context.Context, in dto.LoteInput) (*loteBase, error) {
	fab, err := time.Parse(formatoFecha, in.FechaFabricacion)
	if err != nil {
		return nil, validacion("fecha_fabricacion inválida: se espera YYYY-MM-DD")
	}
	ven, err := time.Parse(formatoFecha, in.FechaVencimiento)
	if err != nil {
		return nil, validacion("fecha_vencimiento inválida: se espera YYYY-MM-DD")
	}
	if !ven.After(fab) {
		return nil, validacion("fecha_vencimiento debe ser posterior a fecha_fabricacion")
	}

	estado := in.Estado
	if estado == "" {
		estado = model.LoteEstadoActivo
	}
	switch estado {
	case model.LoteEstadoActivo, model.LoteEstadoTransito:
	default:
		return nil, validacion("estado %q no es válido para una recepción", estado)
	}

	if _, err := s.provs.FindByID(ctx, in.IDProveedor); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProveedorNoEncontrado
		}
		return nil, err
	}

	return &loteBase{
		fabricacion:   fab,
		vencimiento:   ven,
		estado:        estado,
		observaciones: in.Observaciones,
		idProveedor:   in.IDProveedor,
	}, nil
}

func (s *recepcionService) resolverBodega(ctx context.Context, alcance Alcance, id int64) (*model.Bodega, error) {
	b, err := s.resolverBodegaSinEstado(ctx, alcance, id)
	if err != nil {
		return nil, err
	}
	if !b.Estado {
		return nil, validacion("bodega %d está inactiva", id)
	}
	return b, nil
}

func (s *recepcionService) resolverBodegaSinEstado(ctx context.Context, alcance Alcance, id int64) (*model.Bodega, error) {
	b, err := s.bodegas.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBodegaNoEncontrada
		}
		return nil, err
	}
	if !alcance.Permite(b.IDSucursal) {
		return nil, ErrBodegaFueraDeAlcance
	}
	return b, nil
}

func (s *recepcionService) resolverNumeroLote(ctx context.Context, propuesto *string) (string, error) {
	if propuesto != nil && *propuesto != "" {
		existe, err := s.lotes.ExisteNumero(ctx, *propuesto)
		if err != nil {
			return "", err
		}
		if existe {
			return "", validacion("número de lote %s ya existe", *propuesto)
		}
		return *propuesto, nil
	}
	return generarNumeroLote(), nil
}

func generarNumeroLote() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("LT-%s-%s", time.Now().Format("20060102"), id)
}

// sufijoBodega deriva un sufijo corto del tipo y el nombre de la bodega
// (inicial del tipo seguida de las iniciales del nombre), con ordinal cuando
// colisiona dentro de la misma operación.
func sufijoBodega(b *model.Bodega, usados map[string]int) string {
	var sb strings.Builder
	for _, r := range string(b.Tipo) {
		if unicode.IsLetter(r) {
			sb.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	for _, palabra := range strings.Fields(b.Nombre) {
		for _, r := range palabra {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				sb.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}
	suf := sb.String()
	if suf == "" {
		suf = "B"
	}
	usados[suf]++
	if n := usados[suf]; n > 1 {
		return fmt.Sprintf("%s%d", suf, n)
	}
	return suf
}

func totalUnidades(items []dto.ItemProductoInput) int {
	total := 0
	for _, it := range items {
		total += it.Cantidad
	}
	return total
}

func construirLote(numero string, base *loteBase, idBodega *int64, items []dto.ItemProductoInput) *model.Lote {
	l := &model.Lote{
		NumeroLote:       numero,
		FechaFabricacion: base.fabricacion,
		FechaVencimiento: base.vencimiento,
		Estado:           base.estado,
		Observaciones:    base.observaciones,
		IDProveedor:      base.idProveedor,
		IDBodega:         idBodega,
	}
	for _, it := range items {
		l.Productos = append(l.Productos, model.Producto{
			NombreComercial:   it.NombreComercial,
			NombreGenerico:    it.NombreGenerico,
			CodigoInterno:     it.CodigoInterno,
			CodigoBarras:      it.CodigoBarras,
			FormaFarmaceutica: it.FormaFarmaceutica,
			Concentracion:     it.Concentracion,
			Presentacion:      it.Presentacion,
			UnidadMedida:      it.UnidadMedida,
			Cantidad:          it.Cantidad,
			StockMinimo:       it.StockMinimo,
			StockMaximo:       it.StockMaximo,
			Estado:            true,
		})
	}
	return l
}

func armarExito(l *model.Lote, unidades int) *dto.RecepcionExitosa {
	resp := &dto.RecepcionExitosa{
		IDLote:        l.IDLote,
		NumeroLote:    l.NumeroLote,
		IDBodega:      *l.IDBodega,
		TotalUnidades: unidades,
		Message:       "recepción confirmada",
	}
	for _, p := range l.Productos {
		resp.ProductosCreados = append(resp.ProductosCreados, p.IDProducto)
	}
	return resp
}

// invalidar encola la invalidación de cache post-commit. Best effort: un
// fallo de cola solo se registra, nunca revierte la recepción.
func (s *recepcionService) invalidar(ctx context.Context, entidades ...string) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueInvalidacion(ctx, entidades...); err != nil {
		log.Warn().Err(err).Strs("entidades", entidades).Msg("no se pudo encolar invalidación de cache")
	}
}
