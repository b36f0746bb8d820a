// Package scanner runs the backend's market scanners and turns their rows
// into a filtered, sorted and paginated table.
package scanner

import (
	"math"
	"strings"
	"time"
)

// Row is one scanner result. Values are whatever the backend sent:
// float64, string, bool or nil.
type Row map[string]any

func (r Row) Symbol() string {
	s, _ := r["symbol"].(string)
	return s
}

// Float returns a finite numeric value for key.
func (r Row) Float(key string) (float64, bool) {
	v, ok := r[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type CacheInfo struct {
	FreshUntil     *time.Time `json:"freshUntil,omitempty"`
	IsStale        bool       `json:"isStale"`
	WillRevalidate bool       `json:"willRevalidate"`
}

type Response struct {
	Scanner  string     `json:"scanner"`
	SortedBy string     `json:"sorted_by"`
	Results  []Row      `json:"results"`
	AsOf     *time.Time `json:"asOf,omitempty"`
	Cache    *CacheInfo `json:"cache,omitempty"`
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

type Sort struct {
	Key       string
	Direction Direction
}

type Kind int

const (
	KindText Kind = iota
	KindPrice
	KindPercent
	KindRatio
	KindVolume
)

type Column struct {
	Key    string
	Header string
	Kind   Kind
	// SortValue overrides the raw value when ordering rows.
	SortValue func(Row) any
}

func (c Column) Value(r Row) any {
	return r[c.Key]
}

func (c Column) sortValue(r Row) any {
	if c.SortValue != nil {
		return c.SortValue(r)
	}
	return r[c.Key]
}

// RightAligned reports whether the column holds numbers.
func (c Column) RightAligned() bool {
	return c.Kind != KindText
}

type Definition struct {
	ID          string
	Title       string
	Description string
	Defaults    Request
	DefaultSort Sort
	Columns     []Column
}

func (d Definition) Column(key string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}
