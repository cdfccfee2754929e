package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// RandomWalk returns a positive price path of n closes from a fixed seed
func RandomWalk(seed int64, n int, start, vol float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := start
	for i := range out {
		price *= 1 + vol*rng.NormFloat64()
		out[i] = price
	}
	return out
}

// Leveraged compounds factor times each daily return of base
func Leveraged(base []float64, factor float64) []float64 {
	out := make([]float64, len(base))
	if len(base) == 0 {
		return out
	}
	out[0] = base[0]
	for i := 1; i < len(base); i++ {
		out[i] = out[i-1] * (1 + factor*(base[i]/base[i-1]-1))
	}
	return out
}

// PriceCSV renders closes as a Date,Close file starting at start, one row per day
func PriceCSV(start time.Time, closes []float64) string {
	var b strings.Builder
	b.WriteString("Date,Close\n")
	for i, c := range closes {
		fmt.Fprintf(&b, "%s,%.6f\n", start.AddDate(0, 0, i).Format("2006-01-02"), c)
	}
	return b.String()
}
