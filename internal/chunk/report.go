package chunk

import (
	"fmt"
	"math"
	"strings"

	"github.com/skewt/ceilo/pkg/lowess"
	"github.com/skewt/ceilo/pkg/wmo"
)

// LayerRecord is the formatter-facing view of one detected layer.
type LayerRecord struct {
	Base        float64  `json:"base_ft"`
	Okta        int      `json:"okta"`
	Code        string   `json:"code"`
	NHits       int      `json:"n_hits"`
	Fluffiness  float64  `json:"fluffiness_ft"`
	Instruments []string `json:"instruments"`
	Significant bool     `json:"significant"`
}

// Report is the full outcome of one chunk run.
type Report struct {
	Metar  string        `json:"metar"`
	MSA    float64       `json:"msa_ft"`
	NHits  int           `json:"n_hits"`
	Layers []LayerRecord `json:"layers"`
}

// Report runs any pending pipeline stages and assembles the result. Layers
// are listed in base height order, reportable or not; the METAR message
// contains only the significant ones.
func (c *Chunk) Report() (Report, error) {
	if !c.layered {
		if err := c.FindLayers(); err != nil {
			return Report{}, err
		}
	}

	rep := Report{
		MSA:   c.params.MSA,
		NHits: len(c.detectionIdx()),
		Metar: c.MetarMsg(),
	}
	for _, l := range c.layers {
		rep.Layers = append(rep.Layers, LayerRecord{
			Base:        l.Base,
			Okta:        l.Okta,
			Code:        l.Code,
			NHits:       l.NHits(),
			Fluffiness:  l.Fluffiness,
			Instruments: append([]string(nil), l.Instruments...),
			Significant: l.Significant,
		})
	}
	return rep, nil
}

// MetarMsg formats the detected layers as a METAR cloud segment.
// No detections at all gives "NCD"; detections without any significant
// layer give "NSC".
func (c *Chunk) MetarMsg() string {
	if !c.layered {
		if err := c.FindLayers(); err != nil {
			return ""
		}
	}

	if len(c.detectionIdx()) == 0 {
		return "NCD"
	}

	var parts []string
	for _, l := range c.layers {
		if !l.Significant {
			continue
		}
		code, err := wmo.OktaToCode(l.Okta)
		if err != nil {
			continue
		}
		parts = append(parts, code+l.Code)
	}
	if len(parts) == 0 {
		return "NSC"
	}
	return strings.Join(parts, " ")
}

// SynopStyle formats layers in a diagnostic long form, one line per layer,
// including the ones the METAR message drops.
func (c *Chunk) SynopStyle() string {
	if !c.layered {
		if err := c.FindLayers(); err != nil {
			return ""
		}
	}
	if len(c.layers) == 0 {
		return c.MetarMsg()
	}
	var b strings.Builder
	for _, l := range c.layers {
		mark := " "
		if l.Significant {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s layer %d: base %6.0f ft  okta %d  hits %4d  fluffiness %5.0f ft  [%s]\n",
			mark, l.ID, l.Base, l.Okta, l.NHits(), l.Fluffiness,
			strings.Join(l.Instruments, ","))
	}
	return strings.TrimRight(b.String(), "\n")
}

// SliceProfile returns a LOWESS-smoothed height-versus-time profile for one
// slice, for diagnostic plots. The (dt, height) pairs come back in time
// order.
func (c *Chunk) SliceProfile(sliceID int) (dts, heights []float64, err error) {
	if !c.sliced {
		if err := c.FindSlices(); err != nil {
			return nil, nil, err
		}
	}
	if sliceID < 0 || sliceID >= len(c.slices) {
		return nil, nil, fmt.Errorf("no slice with id %d", sliceID)
	}
	s := c.slices[sliceID]

	dts = make([]float64, len(s.HitIdx))
	raw := make([]float64, len(s.HitIdx))
	for i, idx := range s.HitIdx {
		dts[i] = c.hits[idx].Dt
		raw[i] = c.hits[idx].Height
	}
	smoothed, err := lowess.Smooth(dts, raw, c.params.Lowess.Frac, c.params.Lowess.Iterations)
	if err != nil {
		return nil, nil, fmt.Errorf("smoothing slice %d: %w", sliceID, err)
	}
	return dts, smoothed, nil
}

// SliceDeviation measures how far a slice's hits stray from their smoothed
// profile, in ft. Diagnostic companion to the fluffiness statistic.
func (c *Chunk) SliceDeviation(sliceID int) (float64, error) {
	dts, smoothed, err := c.SliceProfile(sliceID)
	if err != nil {
		return 0, err
	}
	if len(dts) == 0 {
		return 0, nil
	}
	s := c.slices[sliceID]
	var sum float64
	for i, idx := range s.HitIdx {
		sum += math.Abs(c.hits[idx].Height - smoothed[i])
	}
	return sum / float64(len(smoothed)), nil
}
