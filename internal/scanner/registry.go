package scanner

import "math"

const (
	DayGainers    = "day-gainers"
	HODBreakouts  = "hod-breakouts"
	VWAPBreakouts = "vwap-breakouts"
	VolumeSpikes  = "volume-spikes"
	HODApproach   = "hod-approach"
	VWAPApproach  = "vwap-approach"
)

func baseDefaults() Request {
	return Request{
		UniverseLimit: 50,
		Limit:         25,
		MinPrice:      1.5,
		MaxPrice:      30,
		MinAvgVol:     1_000_000,
		MinChangePct:  3.0,
		Interval:      "5m",
		Period:        "1d",
		Prepost:       false,
		CloseSlopeN:   6,
	}
}

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

var (
	colSymbol         = Column{Key: "symbol", Header: "Symbol", Kind: KindText}
	colPrice          = Column{Key: "price", Header: "Price", Kind: KindPrice}
	colPriceChangePct = Column{Key: "price_change_pct", Header: "Chg %", Kind: KindPercent}
	colRangePct       = Column{Key: "range_pct", Header: "Range %", Kind: KindPercent}
	colRelVol         = Column{Key: "relative_volume", Header: "Rel Vol", Kind: KindRatio}
	colDistToHOD      = Column{Key: "distance_to_hod", Header: "Dist to HOD %", Kind: KindPercent}
	colVWAP           = Column{Key: "vwap", Header: "VWAP", Kind: KindPrice}
	colVWAPDistance   = Column{Key: "vwap_distance", Header: "VWAP Dist %", Kind: KindPercent}
	colBreakType      = Column{Key: "break_type", Header: "Break", Kind: KindText}
)

func absVWAPDistance(r Row) any {
	v, ok := r.Float("vwap_distance")
	if !ok {
		return nil
	}
	return math.Abs(v)
}

func setupDefaults() Request {
	req := baseDefaults()
	req.MinSetupPrice = f(2.0)
	req.MaxSetupPrice = f(60.0)
	req.MinTodayVolume = f(200_000)
	req.MinRangePct = f(7.0)
	req.MinPosInRange = f(0.5)
	req.MaxPosInRange = f(0.995)
	req.MinRelVol = f(1.2)
	req.AdaptiveThresholds = b(true)
	return req
}

func registry() []Definition {
	dayGainers := baseDefaults()
	dayGainers.MinChangePct = 0
	dayGainers.MinTodayVolume = f(0)

	hodBreakouts := baseDefaults()
	hodBreakouts.MinTodayVolume = f(150_000)
	hodBreakouts.MinRelVol = f(1.4)
	hodBreakouts.MaxDistToHod = f(1.0)

	vwapBreakouts := baseDefaults()
	vwapBreakouts.MinTodayVolume = f(200_000)
	vwapBreakouts.MinRelVol = f(1.7)

	volumeSpikes := baseDefaults()
	volumeSpikes.MinTodayVolume = f(200_000)
	volumeSpikes.MinRelVol = f(2.0)

	hodApproach := setupDefaults()
	hodApproach.MaxDistToHod = f(2.0)

	vwapApproach := setupDefaults()
	vwapApproach.MaxAbsVwapDistance = f(1.7)

	return []Definition{
		{
			ID:          DayGainers,
			Title:       "Day Gainers",
			Description: "Regular-session gainers with liquidity and price filters.",
			Defaults:    dayGainers,
			DefaultSort: Sort{Key: "change_pct", Direction: Desc},
			Columns: []Column{
				colSymbol,
				colPrice,
				{Key: "change_pct", Header: "Change %", Kind: KindPercent},
				{Key: "volume", Header: "Volume", Kind: KindVolume},
				colRelVol,
				{Key: "float_shares", Header: "Float", Kind: KindVolume},
				{Key: "market_cap", Header: "Mkt Cap", Kind: KindVolume},
			},
		},
		{
			ID:          HODBreakouts,
			Title:       "HOD Breakouts",
			Description: "Names breaking HOD now with strong volume + momentum.",
			Defaults:    hodBreakouts,
			DefaultSort: Sort{Key: "price_change_pct", Direction: Desc},
			Columns: []Column{
				colSymbol,
				colPrice,
				colPriceChangePct,
				colRangePct,
				colRelVol,
				colDistToHOD,
				{Key: "day_high", Header: "HOD", Kind: KindPrice},
				colVWAP,
				colVWAPDistance,
				colBreakType,
			},
		},
		{
			ID:          VWAPBreakouts,
			Title:       "VWAP Breakouts",
			Description: "Names reclaiming/holding VWAP with strong volume + momentum.",
			Defaults:    vwapBreakouts,
			DefaultSort: Sort{Key: "price_change_pct", Direction: Desc},
			Columns: []Column{
				colSymbol,
				colPrice,
				colPriceChangePct,
				colRangePct,
				colRelVol,
				colVWAP,
				colVWAPDistance,
				colBreakType,
			},
		},
		{
			ID:          VolumeSpikes,
			Title:       "Volume Spikes",
			Description: "High relative-volume movers with a minimum gain threshold.",
			Defaults:    volumeSpikes,
			DefaultSort: Sort{Key: "relative_volume", Direction: Desc},
			Columns: []Column{
				colSymbol,
				colPrice,
				colPriceChangePct,
				colRelVol,
				colRangePct,
				{Key: "avg_volume_20d", Header: "Avg Vol 20d", Kind: KindVolume},
			},
		},
		{
			ID:          HODApproach,
			Title:       "HOD Approach",
			Description: "Near-breakout setups approaching HOD.",
			Defaults:    hodApproach,
			DefaultSort: Sort{Key: "distance_to_hod", Direction: Asc},
			Columns: []Column{
				colSymbol,
				colPrice,
				colRangePct,
				colRelVol,
				{Key: "hod", Header: "HOD", Kind: KindPrice},
				colDistToHOD,
			},
		},
		{
			ID:          VWAPApproach,
			Title:       "VWAP Approach",
			Description: "Near-breakout setups approaching VWAP.",
			Defaults:    vwapApproach,
			DefaultSort: Sort{Key: "vwap_distance", Direction: Asc},
			Columns: []Column{
				colSymbol,
				colPrice,
				colRangePct,
				colRelVol,
				colVWAP,
				{Key: "vwap_distance", Header: "VWAP Dist %", Kind: KindPercent, SortValue: absVWAPDistance},
			},
		},
	}
}

// All returns the scanner definitions in display order. Each call returns
// fresh copies that callers may modify.
func All() []Definition {
	return registry()
}

func Lookup(id string) (Definition, bool) {
	for _, d := range registry() {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}
