package data

// FctLink names a prediction function and the parameters and coefficients
// it consumes, in the order the function expects them.
type FctLink struct {
	FctName   string   `json:"fct_name"`
	ParNames  []string `json:"par_names"`
	CoefNames []string `json:"coef_names"`
}

// Clone returns a deep copy.
func (f FctLink) Clone() FctLink {
	return FctLink{
		FctName:   f.FctName,
		ParNames:  append([]string(nil), f.ParNames...),
		CoefNames: append([]string(nil), f.CoefNames...),
	}
}

// PredLink collects the signal and background function links of one
// distribution. Links for the same info are merged by appending.
type PredLink struct {
	Info        DistrInfo `json:"info"`
	SigFctLinks []FctLink `json:"sig_fct_links"`
	BkgFctLinks []FctLink `json:"bkg_fct_links"`
}

// Clone returns a deep copy.
func (p PredLink) Clone() PredLink {
	out := PredLink{Info: p.Info}
	for _, l := range p.SigFctLinks {
		out.SigFctLinks = append(out.SigFctLinks, l.Clone())
	}
	for _, l := range p.BkgFctLinks {
		out.BkgFctLinks = append(out.BkgFctLinks, l.Clone())
	}
	return out
}

// Merge appends the function links of other.
func (p *PredLink) Merge(other PredLink) {
	for _, l := range other.SigFctLinks {
		p.SigFctLinks = append(p.SigFctLinks, l.Clone())
	}
	for _, l := range other.BkgFctLinks {
		p.BkgFctLinks = append(p.BkgFctLinks, l.Clone())
	}
}

// PolLink describes how a polarised beam configuration is built from the
// single beam polarisation parameters. Signs are "+" or "-".
type PolLink struct {
	Energy    int    `json:"energy"`
	PolConfig string `json:"pol_config"`
	EPolName  string `json:"e_pol_name"`
	PPolName  string `json:"p_pol_name"`
	EPolSign  string `json:"e_pol_sign"`
	PPolSign  string `json:"p_pol_sign"`
}
