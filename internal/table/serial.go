package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is day zero of spreadsheet serial dates. Serials are shifted by
// serialCorrection days because the format counts a non-existent 1900-02-29
// and starts at 1 rather than 0.
var serialEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

const serialCorrection = 2

// FromSerial converts a spreadsheet serial day count to UTC. The fractional
// part is the time of day, rounded to the second.
func FromSerial(serial float64) time.Time {
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	return serialEpoch.
		AddDate(0, 0, int(days)-serialCorrection).
		Add(time.Duration(secs) * time.Second)
}

// ParseSerial parses a serial day count. Empty or malformed input yields
// the Unix epoch so that the record can still be replayed.
func ParseSerial(s string) time.Time {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Unix(0, 0).UTC()
	}
	return FromSerial(v)
}
