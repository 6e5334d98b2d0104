package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sawpanic/prewutils/internal/config"
	"github.com/sawpanic/prewutils/internal/setups"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Assemble the configured setup and print its parameters",
		Long:  "Reads the inputs, completes the configured setup (and modifier) and prints the fit parameters and connector contents per energy",
		RunE:  runSetup,
	}
	cmd.Flags().AddFlagSet(commonFlags())
	cmd.Flags().Bool("json", false, "Print the summary as JSON")
	return cmd
}

func runSetup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	asJSON, _ := cmd.Flags().GetBool("json")

	c, err := config.Load(path)
	if err != nil {
		return err
	}
	s, err := c.BuildSetup()
	if err != nil {
		return err
	}
	sum, err := summarize(s)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	return sum.print(cmd.OutOrStdout())
}

type parSummary struct {
	Name   string  `json:"name"`
	Val    float64 `json:"val"`
	Unc    float64 `json:"unc"`
	Fixed  bool    `json:"fixed"`
	Constr string  `json:"constr,omitempty"`
}

type energySummary struct {
	Energy   int          `json:"energy"`
	Preds    int          `json:"preds"`
	Coefs    int          `json:"coefs"`
	Links    int          `json:"links"`
	PolLinks int          `json:"pol_links"`
	Pars     []parSummary `json:"pars"`
}

type setupSummary []energySummary

func summarize(s setups.Setup) (setupSummary, error) {
	conn, err := s.DataConnector()
	if err != nil {
		return nil, err
	}
	var out setupSummary
	for _, energy := range s.Energies() {
		pars, err := s.Pars(energy)
		if err != nil {
			return nil, err
		}
		ec := conn.ForEnergy(energy)
		es := energySummary{
			Energy:   energy,
			Preds:    len(ec.PredDistrs()),
			Coefs:    len(ec.CoefDistrs()),
			Links:    len(ec.PredLinks()),
			PolLinks: len(ec.PolLinks()),
		}
		for _, p := range pars {
			ps := parSummary{Name: p.Name, Val: p.ValIni, Unc: p.UncIni, Fixed: p.Fixed}
			if p.Constr != nil {
				ps.Constr = fmt.Sprintf("%g ± %g", p.Constr.Val, p.Constr.Unc)
			}
			es.Pars = append(es.Pars, ps)
		}
		out = append(out, es)
	}
	return out, nil
}

func (s setupSummary) print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, es := range s {
		fmt.Fprintf(tw, "%d GeV: %d predictions, %d coefficients, %d links, %d polarisation configs\n",
			es.Energy, es.Preds, es.Coefs, es.Links, es.PolLinks)
		fmt.Fprintln(tw, "  PARAMETER\tVALUE\tUNC\tFIXED\tCONSTRAINT")
		for _, p := range es.Pars {
			fmt.Fprintf(tw, "  %s\t%g\t%g\t%t\t%s\n", p.Name, p.Val, p.Unc, p.Fixed, p.Constr)
		}
	}
	return tw.Flush()
}
