package scanner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Request holds the universe filters every scanner accepts plus the
// scanner-specific thresholds, which are sent only when set.
type Request struct {
	UniverseLimit int     `json:"universeLimit"`
	Limit         int     `json:"limit"`
	MinPrice      float64 `json:"minPrice"`
	MaxPrice      float64 `json:"maxPrice"`
	MinAvgVol     float64 `json:"minAvgVol"`
	MinChangePct  float64 `json:"minChangePct"`
	Interval      string  `json:"interval"`
	Period        string  `json:"period"`
	Prepost       bool    `json:"prepost"`
	CloseSlopeN   int     `json:"closeSlopeN"`
	AsOf          string  `json:"asOf,omitempty"`

	MinTodayVolume     *float64 `json:"minTodayVolume,omitempty"`
	MinRelVol          *float64 `json:"minRelVol,omitempty"`
	MaxDistToHod       *float64 `json:"maxDistToHod,omitempty"`
	MinSetupPrice      *float64 `json:"minSetupPrice,omitempty"`
	MaxSetupPrice      *float64 `json:"maxSetupPrice,omitempty"`
	MinRangePct        *float64 `json:"minRangePct,omitempty"`
	MinPosInRange      *float64 `json:"minPosInRange,omitempty"`
	MaxPosInRange      *float64 `json:"maxPosInRange,omitempty"`
	MaxAbsVwapDistance *float64 `json:"maxAbsVwapDistance,omitempty"`
	AdaptiveThresholds *bool    `json:"adaptiveThresholds,omitempty"`
}

func (r *Request) optional() map[string]**float64 {
	return map[string]**float64{
		"minTodayVolume":     &r.MinTodayVolume,
		"minRelVol":          &r.MinRelVol,
		"maxDistToHod":       &r.MaxDistToHod,
		"minSetupPrice":      &r.MinSetupPrice,
		"maxSetupPrice":      &r.MaxSetupPrice,
		"minRangePct":        &r.MinRangePct,
		"minPosInRange":      &r.MinPosInRange,
		"maxPosInRange":      &r.MaxPosInRange,
		"maxAbsVwapDistance": &r.MaxAbsVwapDistance,
	}
}

// Set assigns a filter by its wire name. Scanner-specific thresholds can
// only be changed when the scanner's defaults define them.
func (r *Request) Set(name, value string) error {
	value = strings.TrimSpace(value)
	switch name {
	case "universeLimit", "limit", "closeSlopeN":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: expected a non-negative integer, got %q", name, value)
		}
		switch name {
		case "universeLimit":
			r.UniverseLimit = n
		case "limit":
			r.Limit = n
		default:
			r.CloseSlopeN = n
		}
		return nil
	case "minPrice", "maxPrice", "minAvgVol", "minChangePct":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: expected a number, got %q", name, value)
		}
		switch name {
		case "minPrice":
			r.MinPrice = v
		case "maxPrice":
			r.MaxPrice = v
		case "minAvgVol":
			r.MinAvgVol = v
		default:
			r.MinChangePct = v
		}
		return nil
	case "interval":
		r.Interval = value
		return nil
	case "period":
		r.Period = value
		return nil
	case "asOf":
		r.AsOf = value
		return nil
	case "prepost", "adaptiveThresholds":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", name, value)
		}
		if name == "prepost" {
			r.Prepost = v
			return nil
		}
		if r.AdaptiveThresholds == nil {
			return fmt.Errorf("filter %q does not apply to this scanner", name)
		}
		r.AdaptiveThresholds = &v
		return nil
	}

	field, ok := r.optional()[name]
	if !ok {
		return fmt.Errorf("unknown filter %q", name)
	}
	if *field == nil {
		return fmt.Errorf("filter %q does not apply to this scanner", name)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: expected a number, got %q", name, value)
	}
	*field = &v
	return nil
}

// Fields lists the filters in effect as name/value pairs, sorted by name.
func (r Request) Fields() [][2]string {
	out := [][2]string{
		{"universeLimit", strconv.Itoa(r.UniverseLimit)},
		{"limit", strconv.Itoa(r.Limit)},
		{"minPrice", fmtFloat(r.MinPrice)},
		{"maxPrice", fmtFloat(r.MaxPrice)},
		{"minAvgVol", fmtFloat(r.MinAvgVol)},
		{"minChangePct", fmtFloat(r.MinChangePct)},
		{"interval", r.Interval},
		{"period", r.Period},
		{"prepost", strconv.FormatBool(r.Prepost)},
		{"closeSlopeN", strconv.Itoa(r.CloseSlopeN)},
	}
	if r.AsOf != "" {
		out = append(out, [2]string{"asOf", r.AsOf})
	}
	for name, field := range r.optional() {
		if *field != nil {
			out = append(out, [2]string{name, fmtFloat(**field)})
		}
	}
	if r.AdaptiveThresholds != nil {
		out = append(out, [2]string{"adaptiveThresholds", strconv.FormatBool(*r.AdaptiveThresholds)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// PageSize is the table page size derived from the row limit.
func (r Request) PageSize() int {
	return max(1, r.Limit)
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
