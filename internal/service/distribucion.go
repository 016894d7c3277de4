package service

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DisponibilidadBodega es la vista mínima de una bodega que el planificador
// necesita: identidad, capacidad y ocupación ya derivada.
type DisponibilidadBodega struct {
	ID        int64
	Nombre    string
	Tipo      string
	Capacidad int
	Ocupacion int
}

// Disponible nunca es negativo aunque la ocupación supere la capacidad por
// datos históricos.
func (d DisponibilidadBodega) Disponible() int {
	if d.Capacidad <= d.Ocupacion {
		return 0
	}
	return d.Capacidad - d.Ocupacion
}

// AsignacionPlan es una porción del plan: cuántas unidades van a qué bodega.
type AsignacionPlan struct {
	Bodega                 DisponibilidadBodega
	Cantidad               int
	OcupacionResultantePct decimal.Decimal
}

// PlanDistribucion es el resultado de un reparto factible: la bodega
// principal se llena primero y el excedente cae en las secundarias.
type PlanDistribucion struct {
	Principal   AsignacionPlan
	Secundarias []AsignacionPlan
}

// DeficitSucursal reporta que ni sumando todas las bodegas alcanza.
type DeficitSucursal struct {
	Requerido       int
	TotalDisponible int
	Deficit         int
}

// PlanificarDistribucion reparte `requerido` unidades: primero todo lo que
// quepa en la bodega principal, luego greedy sobre las alternativas ordenadas
// por disponible descendente con desempate por id ascendente. El orden fijo
// hace el plan determinista para entradas iguales.
//
// Devuelve (plan, nil) si la demanda cabe, (nil, deficit) si no. Es una
// función pura: no toca la base de datos ni toma bloqueos.
func PlanificarDistribucion(requerido int, principal DisponibilidadBodega, alternativas []DisponibilidadBodega) (*PlanDistribucion, *DeficitSucursal) {
	total := principal.Disponible()
	for _, a := range alternativas {
		total += a.Disponible()
	}
	if total < requerido {
		return nil, &DeficitSucursal{
			Requerido:       requerido,
			TotalDisponible: total,
			Deficit:         requerido - total,
		}
	}

	ordenadas := make([]DisponibilidadBodega, len(alternativas))
	copy(ordenadas, alternativas)
	sort.SliceStable(ordenadas, func(i, j int) bool {
		if ordenadas[i].Disponible() != ordenadas[j].Disponible() {
			return ordenadas[i].Disponible() > ordenadas[j].Disponible()
		}
		return ordenadas[i].ID < ordenadas[j].ID
	})

	restante := requerido
	enPrincipal := principal.Disponible()
	if enPrincipal > restante {
		enPrincipal = restante
	}
	restante -= enPrincipal

	plan := &PlanDistribucion{
		Principal: AsignacionPlan{
			Bodega:                 principal,
			Cantidad:               enPrincipal,
			OcupacionResultantePct: ocupacionPct(principal, enPrincipal),
		},
	}

	for _, b := range ordenadas {
		if restante == 0 {
			break
		}
		disp := b.Disponible()
		if disp == 0 {
			continue
		}
		asignado := disp
		if asignado > restante {
			asignado = restante
		}
		restante -= asignado
		plan.Secundarias = append(plan.Secundarias, AsignacionPlan{
			Bodega:                 b,
			Cantidad:               asignado,
			OcupacionResultantePct: ocupacionPct(b, asignado),
		})
	}
	return plan, nil
}

func ocupacionPct(b DisponibilidadBodega, asignado int) decimal.Decimal {
	if b.Capacidad == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(b.Ocupacion + asignado)).
		Div(decimal.NewFromInt(int64(b.Capacidad))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}
