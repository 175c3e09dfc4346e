// Package kpi computes aggregate fare KPIs over active analytics records
package kpi

import (
	"context"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fareflow/fareflow/pkg/flight"
)

// DefaultTopRoutes bounds the popular-routes KPI
const DefaultTopRoutes = 10

// AirlineFares aggregates fare statistics per airline
type AirlineFares struct {
	Airline      string          `json:"airline"`
	AvgBaseFare  decimal.Decimal `json:"avg_base_fare"`
	MinBaseFare  decimal.Decimal `json:"min_base_fare"`
	MaxBaseFare  decimal.Decimal `json:"max_base_fare"`
	AvgTotalFare decimal.Decimal `json:"avg_total_fare"`
	MinTotalFare decimal.Decimal `json:"min_total_fare"`
	MaxTotalFare decimal.Decimal `json:"max_total_fare"`
	Bookings     int64           `json:"bookings"`
}

// SeasonalFares aggregates fare statistics per season and peak flag
type SeasonalFares struct {
	Season       string          `json:"season"`
	IsPeakSeason bool            `json:"is_peak_season"`
	MeanFare     decimal.Decimal `json:"mean_fare"`
	MedianFare   decimal.Decimal `json:"median_fare"`
	MinFare      decimal.Decimal `json:"min_fare"`
	MaxFare      decimal.Decimal `json:"max_fare"`
	StdDevFare   decimal.Decimal `json:"stddev_fare"`
	Bookings     int64           `json:"bookings"`
}

// RoutePopularity ranks routes by booking volume
type RoutePopularity struct {
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Bookings    int64           `json:"bookings"`
	AvgFare     decimal.Decimal `json:"avg_fare"`
	MinFare     decimal.Decimal `json:"min_fare"`
	MaxFare     decimal.Decimal `json:"max_fare"`
	Rank        int             `json:"rank"`
}

// AirlineShare breaks down booking volume and market share per airline
type AirlineShare struct {
	Airline         string          `json:"airline"`
	TotalBookings   int64           `json:"total_bookings"`
	PeakBookings    int64           `json:"peak_bookings"`
	OffPeakBookings int64           `json:"off_peak_bookings"`
	MarketSharePct  decimal.Decimal `json:"market_share_pct"`
}

// Results holds all KPI tables computed in one run
type Results struct {
	Airlines    []AirlineFares    `json:"airline_fares"`
	Seasonal    []SeasonalFares   `json:"seasonal_fares"`
	Routes      []RoutePopularity `json:"route_popularity"`
	MarketShare []AirlineShare    `json:"airline_market_share"`
}

// Store persists computed KPI results
type Store interface {
	SaveKPIs(ctx context.Context, results Results) error
}

var two = decimal.NewFromInt(2)

// Compute derives all KPI tables from the given records. Inactive records
// are skipped so deactivated bookings never skew the aggregates. Output
// ordering is deterministic.
func Compute(records []flight.AnalyticsRecord, topRoutes int) Results {
	if topRoutes <= 0 {
		topRoutes = DefaultTopRoutes
	}

	active := make([]*flight.AnalyticsRecord, 0, len(records))

	for i := range records {
		if records[i].IsActive {
			active = append(active, &records[i])
		}
	}

	return Results{
		Airlines:    airlineFares(active),
		Seasonal:    seasonalFares(active),
		Routes:      routePopularity(active, topRoutes),
		MarketShare: airlineShare(active),
	}
}

func airlineFares(records []*flight.AnalyticsRecord) []AirlineFares {
	type acc struct {
		baseSum  decimal.Decimal
		totalSum decimal.Decimal
		baseMin  decimal.Decimal
		baseMax  decimal.Decimal
		totalMin decimal.Decimal
		totalMax decimal.Decimal
		count    int64
	}

	groups := map[string]*acc{}

	for _, r := range records {
		g, ok := groups[r.Airline]
		if !ok {
			g = &acc{
				baseMin:  r.BaseFare,
				baseMax:  r.BaseFare,
				totalMin: r.TotalFare,
				totalMax: r.TotalFare,
			}
			groups[r.Airline] = g
		}

		g.baseSum = g.baseSum.Add(r.BaseFare)
		g.totalSum = g.totalSum.Add(r.TotalFare)
		g.baseMin = decimal.Min(g.baseMin, r.BaseFare)
		g.baseMax = decimal.Max(g.baseMax, r.BaseFare)
		g.totalMin = decimal.Min(g.totalMin, r.TotalFare)
		g.totalMax = decimal.Max(g.totalMax, r.TotalFare)
		g.count++
	}

	out := make([]AirlineFares, 0, len(groups))

	for airline, g := range groups {
		n := decimal.NewFromInt(g.count)
		out = append(out, AirlineFares{
			Airline:      airline,
			AvgBaseFare:  g.baseSum.Div(n).Round(2),
			MinBaseFare:  g.baseMin,
			MaxBaseFare:  g.baseMax,
			AvgTotalFare: g.totalSum.Div(n).Round(2),
			MinTotalFare: g.totalMin,
			MaxTotalFare: g.totalMax,
			Bookings:     g.count,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Airline < out[j].Airline })

	return out
}

func seasonalFares(records []*flight.AnalyticsRecord) []SeasonalFares {
	type key struct {
		season string
		peak   bool
	}

	groups := map[key][]decimal.Decimal{}

	for _, r := range records {
		k := key{season: r.Season, peak: r.IsPeakSeason}
		groups[k] = append(groups[k], r.TotalFare)
	}

	out := make([]SeasonalFares, 0, len(groups))

	for k, fares := range groups {
		sort.Slice(fares, func(i, j int) bool { return fares[i].LessThan(fares[j]) })

		sum := decimal.Zero
		for _, f := range fares {
			sum = sum.Add(f)
		}

		n := decimal.NewFromInt(int64(len(fares)))
		mean := sum.Div(n)

		out = append(out, SeasonalFares{
			Season:       k.season,
			IsPeakSeason: k.peak,
			MeanFare:     mean.Round(2),
			MedianFare:   median(fares).Round(2),
			MinFare:      fares[0],
			MaxFare:      fares[len(fares)-1],
			StdDevFare:   stddev(fares, mean).Round(2),
			Bookings:     int64(len(fares)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}

		return !out[i].IsPeakSeason && out[j].IsPeakSeason
	})

	return out
}

func routePopularity(records []*flight.AnalyticsRecord, topRoutes int) []RoutePopularity {
	type key struct {
		source      string
		destination string
	}

	type acc struct {
		sum   decimal.Decimal
		min   decimal.Decimal
		max   decimal.Decimal
		count int64
	}

	groups := map[key]*acc{}

	for _, r := range records {
		k := key{source: r.Source, destination: r.Destination}

		g, ok := groups[k]
		if !ok {
			g = &acc{min: r.TotalFare, max: r.TotalFare}
			groups[k] = g
		}

		g.sum = g.sum.Add(r.TotalFare)
		g.min = decimal.Min(g.min, r.TotalFare)
		g.max = decimal.Max(g.max, r.TotalFare)
		g.count++
	}

	out := make([]RoutePopularity, 0, len(groups))

	for k, g := range groups {
		out = append(out, RoutePopularity{
			Source:      k.source,
			Destination: k.destination,
			Bookings:    g.count,
			AvgFare:     g.sum.Div(decimal.NewFromInt(g.count)).Round(2),
			MinFare:     g.min,
			MaxFare:     g.max,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Bookings != out[j].Bookings {
			return out[i].Bookings > out[j].Bookings
		}

		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}

		return out[i].Destination < out[j].Destination
	})

	if len(out) > topRoutes {
		out = out[:topRoutes]
	}

	for i := range out {
		out[i].Rank = i + 1
	}

	return out
}

func airlineShare(records []*flight.AnalyticsRecord) []AirlineShare {
	type acc struct {
		total int64
		peak  int64
	}

	groups := map[string]*acc{}

	var grandTotal int64

	for _, r := range records {
		g, ok := groups[r.Airline]
		if !ok {
			g = &acc{}
			groups[r.Airline] = g
		}

		g.total++
		grandTotal++

		if r.IsPeakSeason {
			g.peak++
		}
	}

	out := make([]AirlineShare, 0, len(groups))

	for airline, g := range groups {
		share := decimal.Zero
		if grandTotal > 0 {
			share = decimal.NewFromInt(g.total).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(grandTotal)).
				Round(2)
		}

		out = append(out, AirlineShare{
			Airline:         airline,
			TotalBookings:   g.total,
			PeakBookings:    g.peak,
			OffPeakBookings: g.total - g.peak,
			MarketSharePct:  share,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalBookings != out[j].TotalBookings {
			return out[i].TotalBookings > out[j].TotalBookings
		}

		return out[i].Airline < out[j].Airline
	})

	return out
}

// median expects fares sorted ascending
func median(fares []decimal.Decimal) decimal.Decimal {
	n := len(fares)
	if n == 0 {
		return decimal.Zero
	}

	if n%2 == 1 {
		return fares[n/2]
	}

	return fares[n/2-1].Add(fares[n/2]).Div(two)
}

// stddev computes the sample standard deviation; singleton groups get 0
func stddev(fares []decimal.Decimal, mean decimal.Decimal) decimal.Decimal {
	n := len(fares)
	if n < 2 {
		return decimal.Zero
	}

	var sumSq float64

	meanF, _ := mean.Float64()

	for _, f := range fares {
		v, _ := f.Float64()
		d := v - meanF
		sumSq += d * d
	}

	return decimal.NewFromFloat(math.Sqrt(sumSq / float64(n-1)))
}
