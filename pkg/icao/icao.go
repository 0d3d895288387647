// Package icao implements the cloud layer selection rules from Annex 3 to
// the Convention on International Civil Aviation (Meteorological Service for
// International Air Navigation).
package icao

// SignificantCloud reports which layers must appear in a METAR, given the
// okta counts of layers sorted from the lowest to the highest base:
//
//   - the first layer is always reported;
//   - the second layer must be SCT or more (3+ oktas);
//   - the third layer must be BKN or more (5+ oktas);
//   - no more than 3 layers are reported (CB/TCU, which may claim a fourth
//     slot, are out of scope here).
//
// Reference: Sec. 4.5.4.3 e) and footnote 14 in Table A3-1, ICAO Annex 3,
// 20th edition, July 2018.
func SignificantCloud(oktas []int) []bool {
	sig := make([]bool, len(oktas))
	level := 0
	reported := 0
	for i, okta := range oktas {
		if okta > level && reported < 3 {
			level += 2
			sig[i] = true
			reported++
		}
	}
	return sig
}
