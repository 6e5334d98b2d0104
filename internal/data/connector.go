package data

// Connector is the finished snapshot of a setup handed to the fit engine:
// the used predictions, their coefficients and all linking instructions.
// Accessors return copies so a connector can be shared between goroutines.
type Connector struct {
	preds     []PredDistr
	coefs     []CoefDistr
	predLinks []PredLink
	polLinks  []PolLink
}

// NewConnector copies the given tables into a connector.
func NewConnector(preds []PredDistr, coefs []CoefDistr, predLinks []PredLink, polLinks []PolLink) Connector {
	c := Connector{
		preds:     make([]PredDistr, 0, len(preds)),
		coefs:     make([]CoefDistr, 0, len(coefs)),
		predLinks: make([]PredLink, 0, len(predLinks)),
		polLinks:  append([]PolLink(nil), polLinks...),
	}
	for _, p := range preds {
		c.preds = append(c.preds, p.Clone())
	}
	for _, co := range coefs {
		c.coefs = append(c.coefs, NewCoef(co.CoefName, co.Info, co.Coefs))
	}
	for _, l := range predLinks {
		c.predLinks = append(c.predLinks, l.Clone())
	}
	return c
}

func (c Connector) PredDistrs() []PredDistr {
	out := make([]PredDistr, len(c.preds))
	for i, p := range c.preds {
		out[i] = p.Clone()
	}
	return out
}

func (c Connector) CoefDistrs() []CoefDistr {
	out := make([]CoefDistr, len(c.coefs))
	for i, co := range c.coefs {
		out[i] = NewCoef(co.CoefName, co.Info, co.Coefs)
	}
	return out
}

func (c Connector) PredLinks() []PredLink {
	out := make([]PredLink, len(c.predLinks))
	for i, l := range c.predLinks {
		out[i] = l.Clone()
	}
	return out
}

func (c Connector) PolLinks() []PolLink {
	return append([]PolLink(nil), c.polLinks...)
}

// ForEnergy restricts the connector to a single energy.
func (c Connector) ForEnergy(energy int) Connector {
	var out Connector
	for _, p := range c.preds {
		if p.Info.Energy == energy {
			out.preds = append(out.preds, p.Clone())
		}
	}
	for _, co := range c.coefs {
		if co.Info.Energy == energy {
			out.coefs = append(out.coefs, NewCoef(co.CoefName, co.Info, co.Coefs))
		}
	}
	for _, l := range c.predLinks {
		if l.Info.Energy == energy {
			out.predLinks = append(out.predLinks, l.Clone())
		}
	}
	for _, l := range c.polLinks {
		if l.Energy == energy {
			out.polLinks = append(out.polLinks, l)
		}
	}
	return out
}

// Energies lists the energies of the used predictions in first-seen order.
func (c Connector) Energies() []int {
	var energies []int
	seen := make(map[int]bool)
	for _, p := range c.preds {
		if !seen[p.Info.Energy] {
			seen[p.Info.Energy] = true
			energies = append(energies, p.Info.Energy)
		}
	}
	return energies
}
