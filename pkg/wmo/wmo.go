// Package wmo converts sky-coverage fractions and cloud base heights into
// the okta counts and METAR code chunks defined by WMO reporting rules.
package wmo

import (
	"fmt"
	"math"
)

// PercToOkta converts a sky coverage percentage into an okta count (eighths
// of sky covered). The 0 and 8 okta bins nominally mean *exactly* 0% and
// 100%; lim0 and lim8 widen them, shrinking the (already oversized) 1 and 7
// okta bins accordingly:
//
//	0 oktas:  0 <= perc <= lim0
//	1 okta:   lim0 < perc <= 1.5 * 100/8
//	...
//	7 oktas:  6.5 * 100/8 < perc < lim8
//	8 oktas:  lim8 <= perc <= 100
//
// Reference: Boers et al. (2010), J. Geophys. Res. 115, D24116.
func PercToOkta(perc, lim0, lim8 float64) (int, error) {
	if perc < 0 || perc > 100 {
		return 0, fmt.Errorf("coverage percentage out of range: %v", perc)
	}

	switch {
	case perc <= lim0:
		return 0, nil
	case perc >= lim8:
		return 8, nil
	}

	okta := perc / (100.0 / 8.0)
	switch {
	case okta < 1:
		okta = math.Ceil(okta)
	case okta > 7:
		okta = math.Floor(okta)
	default:
		okta = math.Round(okta)
	}
	return int(okta), nil
}

// OktaToCode converts an okta count to a METAR cloud amount code.
func OktaToCode(okta int) (string, error) {
	switch {
	case okta == 0:
		return "NCD", nil
	case okta <= 2:
		return "FEW", nil
	case okta <= 4:
		return "SCT", nil
	case okta <= 7:
		return "BKN", nil
	case okta == 8:
		return "OVC", nil
	}
	return "", fmt.Errorf("okta value out of range: %d", okta)
}

// HeightToCode converts a cloud base height in ft into the 3-digit METAR
// height chunk, e.g. 5000 ft -> "050", 500 ft -> "005". Values are floored
// to 100 ft below 10'000 ft and to 1000 ft above, per the WMO's "Aerodrome
// Reports and Forecasts" handbook (WMO-No.782).
func HeightToCode(height float64) string {
	if math.IsNaN(height) {
		return ""
	}
	var hundreds float64
	if height <= 10000 {
		hundreds = math.Floor(height / 100)
	} else {
		hundreds = math.Floor(height/1000) * 10
	}
	return fmt.Sprintf("%03d", int(hundreds))
}
