package scanner

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func rowsOf(symbols ...string) []Row {
	out := make([]Row, len(symbols))
	for i, s := range symbols {
		out[i] = Row{"symbol": s}
	}
	return out
}

func symbols(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Symbol()
	}
	return out
}

func TestFilterBySymbol(t *testing.T) {
	rows := rowsOf("AAPL", "MSFT", "aapx", "TSLA")

	assert.Equal(t, []string{"AAPL", "aapx"}, symbols(FilterBySymbol(rows, " aap ")))
	assert.Equal(t, []string{"MSFT"}, symbols(FilterBySymbol(rows, "sf")))
	assert.Len(t, FilterBySymbol(rows, ""), 4)
	assert.Empty(t, FilterBySymbol(rows, "ZZZ"))
}

func TestFilterBySymbol_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		syms := rapid.SliceOf(rapid.StringMatching(`[A-Za-z]{1,5}`)).Draw(t, "symbols")
		q := rapid.StringMatching(`[A-Za-z]{0,2}`).Draw(t, "q")
		rows := rowsOf(syms...)

		got := FilterBySymbol(rows, q)
		if q == "" && len(got) != len(rows) {
			t.Fatalf("empty query dropped rows: %d of %d", len(got), len(rows))
		}
		var want []string
		for _, s := range syms {
			if strings.Contains(strings.ToUpper(s), strings.ToUpper(q)) {
				want = append(want, s)
			}
		}
		if !slices.Equal(want, symbols(got)) {
			t.Fatalf("filter %q: want %v, got %v", q, want, symbols(got))
		}
	})
}

func TestSortRows_NullsLastBothDirections(t *testing.T) {
	def, _ := Lookup(DayGainers)
	rows := []Row{
		{"symbol": "A", "change_pct": 3.0},
		{"symbol": "B", "change_pct": nil},
		{"symbol": "C", "change_pct": 10.0},
		{"symbol": "D"},
		{"symbol": "E", "change_pct": -1.0},
	}

	asc := SortRows(def, rows, Sort{Key: "change_pct", Direction: Asc})
	assert.Equal(t, []string{"E", "A", "C", "B", "D"}, symbols(asc))

	desc := SortRows(def, rows, Sort{Key: "change_pct", Direction: Desc})
	assert.Equal(t, []string{"C", "A", "E", "B", "D"}, symbols(desc))

	assert.Equal(t, "A", rows[0].Symbol(), "input is not reordered")
}

func TestSortRows_TextAndUnknownColumn(t *testing.T) {
	def, _ := Lookup(HODBreakouts)
	rows := []Row{
		{"symbol": "X", "break_type": "vwap"},
		{"symbol": "Y", "break_type": "hod"},
		{"symbol": "Z", "break_type": nil},
	}
	got := SortRows(def, rows, Sort{Key: "break_type", Direction: Asc})
	assert.Equal(t, []string{"Y", "X", "Z"}, symbols(got))

	got = SortRows(def, rows, Sort{Key: "no_such_column", Direction: Asc})
	assert.Equal(t, []string{"X", "Y", "Z"}, symbols(got))
}

func TestSortRows_AbsoluteVWAPDistance(t *testing.T) {
	def, _ := Lookup(VWAPApproach)
	rows := []Row{
		{"symbol": "A", "vwap_distance": -0.4},
		{"symbol": "B", "vwap_distance": 0.2},
		{"symbol": "C", "vwap_distance": -1.5},
	}
	got := SortRows(def, rows, def.DefaultSort)
	assert.Equal(t, []string{"B", "A", "C"}, symbols(got))
}

func TestSortRows_ReversalProperty(t *testing.T) {
	def, _ := Lookup(VolumeSpikes)
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		rows := make([]Row, n)
		for i := range rows {
			r := Row{"symbol": fmt.Sprintf("S%d", i)}
			if rapid.Bool().Draw(t, "hasValue") {
				r["relative_volume"] = rapid.Float64Range(-100, 100).Draw(t, "value")
			} else if rapid.Bool().Draw(t, "explicitNull") {
				r["relative_volume"] = nil
			}
			rows[i] = r
		}

		asc := SortRows(def, rows, Sort{Key: "relative_volume", Direction: Asc})
		desc := SortRows(def, rows, Sort{Key: "relative_volume", Direction: Desc})

		ascVals, ascNulls := splitValues(asc)
		descVals, descNulls := splitValues(desc)
		slices.Reverse(descVals)
		if !slices.Equal(ascVals, descVals) {
			t.Fatalf("desc is not asc reversed: %v vs %v", ascVals, descVals)
		}
		if ascNulls != descNulls {
			t.Fatalf("null count differs: %d vs %d", ascNulls, descNulls)
		}
		for _, sorted := range [][]Row{asc, desc} {
			for i := len(sorted) - ascNulls; i < len(sorted); i++ {
				if _, ok := sorted[i].Float("relative_volume"); ok {
					t.Fatalf("numeric value found among trailing nulls at %d", i)
				}
			}
		}
	})
}

func splitValues(rows []Row) ([]float64, int) {
	var vals []float64
	nulls := 0
	for _, r := range rows {
		if v, ok := r.Float("relative_volume"); ok {
			vals = append(vals, v)
		} else {
			nulls++
		}
	}
	return vals, nulls
}

func TestPaginate(t *testing.T) {
	rows := rowsOf("A", "B", "C", "D", "E")

	p := Paginate(rows, 0, 2)
	assert.Equal(t, []string{"A", "B"}, symbols(p.Rows))
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 1, p.First())
	assert.Equal(t, 2, p.Last())

	p = Paginate(rows, 9, 2)
	assert.Equal(t, 2, p.Index, "index clamps to the last page")
	assert.Equal(t, []string{"E"}, symbols(p.Rows))
	assert.Equal(t, 5, p.Last())

	p = Paginate(nil, 3, 0)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 0, p.Index)
	assert.Equal(t, 1, p.Size)
	assert.Zero(t, p.First())
}

func TestPriceOf(t *testing.T) {
	rows := []Row{
		{"symbol": "AAPL", "price": 190.5},
		{"symbol": "NOPE", "price": nil},
	}
	p, ok := PriceOf(rows, "AAPL")
	require.True(t, ok)
	assert.Equal(t, 190.5, p)

	_, ok = PriceOf(rows, "NOPE")
	assert.False(t, ok)
	_, ok = PriceOf(rows, "MSFT")
	assert.False(t, ok)
}
