package scanner

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// FilterBySymbol keeps rows whose symbol contains q, ignoring case and
// surrounding whitespace. An empty query keeps every row.
func FilterBySymbol(rows []Row, q string) []Row {
	q = strings.ToUpper(strings.TrimSpace(q))
	if q == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToUpper(symbolString(r)), q) {
			out = append(out, r)
		}
	}
	return out
}

func symbolString(r Row) string {
	v, ok := r["symbol"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// SortRows returns a sorted copy of rows. Missing values sort last in both
// directions. Two numbers compare numerically; anything else compares as
// text. The sort is stable. An unknown column leaves the order unchanged.
func SortRows(def Definition, rows []Row, s Sort) []Row {
	col, ok := def.Column(s.Key)
	if !ok {
		return rows
	}
	dir := 1
	if s.Direction == Desc {
		dir = -1
	}

	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b Row) int {
		av, bv := normalize(col.sortValue(a)), normalize(col.sortValue(b))
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return 1
		case bv == nil:
			return -1
		}
		af, aNum := av.(float64)
		bf, bNum := bv.(float64)
		if aNum && bNum {
			switch {
			case af < bf:
				return -dir
			case af > bf:
				return dir
			}
			return 0
		}
		return strings.Compare(fmt.Sprint(av), fmt.Sprint(bv)) * dir
	})
	return out
}

func normalize(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	}
	return v
}

type Page struct {
	Rows       []Row
	Index      int
	Size       int
	TotalRows  int
	TotalPages int
}

// First is the 1-based position of the page's first row, 0 when empty.
func (p Page) First() int {
	if len(p.Rows) == 0 {
		return 0
	}
	return p.Index*p.Size + 1
}

func (p Page) Last() int {
	if len(p.Rows) == 0 {
		return 0
	}
	return p.Index*p.Size + len(p.Rows)
}

// Paginate slices rows into the page at index, clamped to the valid range.
func Paginate(rows []Row, index, size int) Page {
	size = max(1, size)
	total := len(rows)
	pages := max(1, (total+size-1)/size)
	index = min(max(0, index), pages-1)

	start := index * size
	end := min(start+size, total)
	return Page{
		Rows:       rows[start:end],
		Index:      index,
		Size:       size,
		TotalRows:  total,
		TotalPages: pages,
	}
}

// PriceOf returns the finite price of symbol's row, if any.
func PriceOf(rows []Row, symbol string) (float64, bool) {
	for _, r := range rows {
		if symbolString(r) == symbol {
			return r.Float("price")
		}
	}
	return 0, false
}
