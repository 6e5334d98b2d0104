package data

// Infoed is implemented by every record keyed by a DistrInfo.
type Infoed interface {
	PredDistr | CoefDistr | PredLink
}

func infoOf[T Infoed](v T) DistrInfo {
	switch x := any(v).(type) {
	case PredDistr:
		return x.Info
	case CoefDistr:
		return x.Info
	case PredLink:
		return x.Info
	}
	return DistrInfo{}
}

// SubvecInfo returns the elements belonging to exactly the given info.
func SubvecInfo[T Infoed](vec []T, info DistrInfo) []T {
	var out []T
	for _, v := range vec {
		if infoOf(v) == info {
			out = append(out, v)
		}
	}
	return out
}

// SubvecEnergyAndName returns the elements of one distribution at one energy.
func SubvecEnergyAndName[T Infoed](vec []T, energy int, distr string) []T {
	var out []T
	for _, v := range vec {
		i := infoOf(v)
		if i.Energy == energy && i.DistrName == distr {
			out = append(out, v)
		}
	}
	return out
}

// FindInfos lists the distinct infos of the given records in first-seen order.
func FindInfos[T Infoed](vec []T) []DistrInfo {
	var infos []DistrInfo
	seen := make(map[DistrInfo]bool)
	for _, v := range vec {
		i := infoOf(v)
		if !seen[i] {
			seen[i] = true
			infos = append(infos, i)
		}
	}
	return infos
}

// FindDistrNames lists the distinct distribution names in first-seen order.
func FindDistrNames(infos []DistrInfo) []string {
	var out []string
	seen := make(map[string]bool)
	for _, i := range infos {
		if !seen[i.DistrName] {
			seen[i.DistrName] = true
			out = append(out, i.DistrName)
		}
	}
	return out
}

// CombineBins sums all bins of a distribution into a single bin whose center
// is the mean of the original centers.
func CombineBins(pred PredDistr) PredDistr {
	var sig, bkg float64
	for _, v := range pred.SigDistr {
		sig += v
	}
	for _, v := range pred.BkgDistr {
		bkg += v
	}

	var center []float64
	if len(pred.BinCenters) > 0 {
		center = make([]float64, len(pred.BinCenters[0]))
		for _, c := range pred.BinCenters {
			for d := range center {
				if d < len(c) {
					center[d] += c[d]
				}
			}
		}
		for d := range center {
			center[d] /= float64(len(pred.BinCenters))
		}
	}

	out := PredDistr{
		Info:     pred.Info,
		SigDistr: []float64{sig},
		BkgDistr: []float64{bkg},
	}
	if center != nil {
		out.BinCenters = [][]float64{center}
	}
	return out
}

// CombineAllBins applies CombineBins to every distribution.
func CombineAllBins(preds []PredDistr) []PredDistr {
	out := make([]PredDistr, len(preds))
	for i, p := range preds {
		out[i] = CombineBins(p)
	}
	return out
}
