// Package roster holds the fixed driver roster. The fleet is a statically
// partitioned set of named drivers, configured at process start and
// independent of the mutable record store; records naming drivers outside the
// roster stay in the store but are never attributed to a driver bucket.
package roster

import "sort"

// Category partitions the fleet into the in-house team and the
// contracted/aggregated team.
type Category string

const (
	Casa     Category = "casa"
	Agregado Category = "agregado"
)

var casaDrivers = []string{
	"AGILSON PINTO DA SILVA",
	"ALDO CESAR MONTEIRO DA SILVA",
	"CLAUDEMIR ELIAS DA SILVA",
	"CLEBERSON SOARES DE AQUINO",
	"JADSON RODRIGO CAVALCANTI DE LIMA",
	"JOAO MARCELO DA SILVA CARNEIRO",
	"JOSENILDO DE SOUZA PIMENTEL",
	"LUIZ ARNALDO ARAUJO DA SILVA",
	"VALDIR DE BARROS",
}

var agregadoDrivers = []string{
	"AILTON VENANCIO",
	"EDGAR",
	"FABIO VITALINO",
	"FELIZBERTO HUMBERTO",
	"FRANCISCO",
	"GEAN",
	"HERMES DA FONSECA",
	"IVALDO DE FREITAS",
	"IVAN MARINHO",
	"JOÃO MARCOS",
	"JOSE CESAR",
	"JOSE IVAN",
	"JOSENILDO BARRETO",
	"JUCIELIO EDUARDO",
	"LIVIO ARCOVERDE",
	"LUCIANO FERREIRA",
	"MAJOR",
	"ROBENILSON",
	"TIAGO",
	"VICENTE",
}

// Roster is the immutable driver listing with O(1) category lookup.
type Roster struct {
	names    []string
	category map[string]Category
}

// Fixed returns the configured fleet roster: in-house drivers first, then the
// aggregated team, each group sorted by name.
func Fixed() *Roster {
	return New(casaDrivers, agregadoDrivers)
}

// New builds a roster from explicit name sets. Exposed for tests and for
// operations that run a reduced fleet.
func New(casa, agregado []string) *Roster {
	r := &Roster{category: make(map[string]Category, len(casa)+len(agregado))}
	for _, group := range []struct {
		names []string
		cat   Category
	}{
		{casa, Casa},
		{agregado, Agregado},
	} {
		sorted := append([]string(nil), group.names...)
		sort.Strings(sorted)
		for _, name := range sorted {
			if _, dup := r.category[name]; dup {
				continue
			}
			r.names = append(r.names, name)
			r.category[name] = group.cat
		}
	}
	return r
}

// Contains reports whether name is a roster entry. Matching is exact; typos
// in driver names deliberately fall outside every bucket so they surface in
// fleet totals.
func (r *Roster) Contains(name string) bool {
	_, ok := r.category[name]
	return ok
}

// CategoryOf returns the category for a roster entry.
func (r *Roster) CategoryOf(name string) (Category, bool) {
	c, ok := r.category[name]
	return c, ok
}

// Names returns the stable listing: casa drivers sorted, then agregado
// drivers sorted.
func (r *Roster) Names() []string {
	return append([]string(nil), r.names...)
}

// ByCategory returns the sorted names of one category.
func (r *Roster) ByCategory(cat Category) []string {
	var out []string
	for _, n := range r.names {
		if r.category[n] == cat {
			out = append(out, n)
		}
	}
	return out
}

func (r *Roster) Len() int { return len(r.names) }
