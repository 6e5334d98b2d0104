// Package config loads YAML run configurations and builds setups, toy
// runners and result stores from them.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/names"
	"github.com/sawpanic/prewutils/internal/setuphelp"
)

var ErrInvalidConfig = errors.New("invalid run config")

const (
	SetupGeneral = "general"
	SetupRK      = "rk"
)

// Config is a complete run configuration.
type Config struct {
	Setup         string          `yaml:"setup" validate:"required,oneof=general rk"`
	Energy        int             `yaml:"energy" validate:"required_if=Setup general,gte=0"`
	Energies      []int           `yaml:"energies" validate:"required_if=Setup rk,dive,gt=0"`
	Inputs        []InputConfig   `yaml:"inputs" validate:"required,min=1,dive"`
	Distributions []DistrConfig   `yaml:"distributions" validate:"required,min=1,dive"`
	Runs          []RunConfig     `yaml:"runs" validate:"required,min=1,dive"`
	AccBoxes      []AccBoxConfig  `yaml:"acceptance_boxes" validate:"dive"`
	PolyBoxes     []PolyBoxConfig `yaml:"polynomial_boxes" validate:"dive"`
	Efficiencies  []EffConfig     `yaml:"efficiencies" validate:"dive"`
	TGCs          []TGCConfig     `yaml:"tgcs" validate:"dive"`
	CrossSections []XSConfig      `yaml:"cross_sections" validate:"dive"`
	RK            RKConfig        `yaml:"rk"`
	Modifier      *ModifierConfig `yaml:"modifier"`
	Ordering      *OrderingConfig `yaml:"ordering"`
	Runner        RunnerConfig    `yaml:"runner"`
	Store         *StoreConfig    `yaml:"store"`
	Metrics       *MetricsConfig  `yaml:"metrics"`
}

// InputConfig names one file or, with Dir and Pattern, all matching files.
type InputConfig struct {
	Path    string `yaml:"path" validate:"required_without=Dir"`
	Dir     string `yaml:"dir" validate:"required_without=Path"`
	Pattern string `yaml:"pattern" validate:"required_with=Dir"`
	Format  string `yaml:"format" validate:"required,oneof=RK CSV"`
}

type DistrConfig struct {
	Name string `yaml:"name" validate:"required"`
	Mode string `yaml:"mode"`
}

type ParConfig struct {
	Val    float64          `yaml:"val"`
	Unc    float64          `yaml:"unc" validate:"gte=0"`
	Constr *fit.GaussConstr `yaml:"constr"`
	Fixed  bool             `yaml:"fixed"`
}

type PolConfig struct {
	Name      string `yaml:"name" validate:"required"`
	ParConfig `yaml:",inline"`
}

type PolConfigLink struct {
	Config       string  `yaml:"config" validate:"required,len=2"`
	EPol         string  `yaml:"e_pol" validate:"required"`
	PPol         string  `yaml:"p_pol" validate:"required"`
	ESign        string  `yaml:"e_sign" validate:"required,polsign"`
	PSign        string  `yaml:"p_sign" validate:"required,polsign"`
	LumiFraction float64 `yaml:"lumi_fraction" validate:"gte=0,lte=1"`
}

// RunConfig describes the luminosity and beam polarisations of one energy.
type RunConfig struct {
	Energy     int             `yaml:"energy" validate:"required,gt=0"`
	Lumi       ParConfig       `yaml:"lumi"`
	Pols       []PolConfig     `yaml:"pols" validate:"dive"`
	PolConfigs []PolConfigLink `yaml:"pol_configs" validate:"required,min=1,dive"`
}

type BoxDistr struct {
	Name       string  `yaml:"name" validate:"required"`
	CoordIndex int     `yaml:"coord_index" validate:"gte=0"`
	BinWidth   float64 `yaml:"bin_width" validate:"gt=0"`
}

type AccBoxConfig struct {
	Name      string     `yaml:"name" validate:"required"`
	Coord     string     `yaml:"coord" validate:"required"`
	Center    float64    `yaml:"center"`
	Width     float64    `yaml:"width" validate:"gt=0"`
	FixCenter bool       `yaml:"fix_center"`
	FixWidth  bool       `yaml:"fix_width"`
	Distrs    []BoxDistr `yaml:"distrs" validate:"required,min=1,dive"`
}

type PolyBoxConfig struct {
	Name      string   `yaml:"name" validate:"required"`
	Distrs    []string `yaml:"distrs" validate:"required,min=1"`
	FixCenter bool     `yaml:"fix_center"`
	FixWidth  bool     `yaml:"fix_width"`
}

type EffConfig struct {
	Distr  string           `yaml:"distr" validate:"required"`
	Eff    float64          `yaml:"eff" validate:"gt=0"`
	Fixed  bool             `yaml:"fixed"`
	Constr *fit.GaussConstr `yaml:"constr"`
}

type TGCConfig struct {
	Distrs []string `yaml:"distrs" validate:"required,min=1"`
	Mode   string   `yaml:"mode" validate:"required,oneof=linear quadratic"`
	Style  string   `yaml:"style" validate:"omitempty,oneof=RK JB"`
}

type XSConfig struct {
	Distr       string   `yaml:"distr" validate:"required"`
	Configs     []string `yaml:"configs" validate:"required,min=1,dive,chirality"`
	Total       bool     `yaml:"total"`
	Asymmetries bool     `yaml:"asymmetries"`
	AsymmNames  []string `yaml:"asymmetry_names"`
}

type ChiralXSConfig struct {
	Distr  string `yaml:"distr" validate:"required"`
	Config string `yaml:"config" validate:"required,chirality"`
}

type AsymmConfig struct {
	Distr    string   `yaml:"distr" validate:"required"`
	Configs  []string `yaml:"configs" validate:"min=2,max=3,dive,chirality"`
	ParNames []string `yaml:"par_names"`
}

type AfConfig struct {
	Distr         string `yaml:"distr" validate:"required"`
	Par           string `yaml:"par"`
	CosThetaIndex int    `yaml:"cos_theta_index" validate:"gte=0"`
}

// RKConfig holds the switches of the legacy multi-energy setup.
type RKConfig struct {
	CTGCs         string           `yaml:"ctgcs" validate:"omitempty,oneof=linear quadratic"`
	FreeChiralXS  []ChiralXSConfig `yaml:"free_chiral_xs" validate:"dive"`
	FreeTotalXS   []string         `yaml:"free_total_xs"`
	Asymmetries   []AsymmConfig    `yaml:"asymmetries" validate:"dive"`
	FinalStateAfs []AfConfig       `yaml:"final_state_asymmetries" validate:"dive"`
	WWMuOnly      bool             `yaml:"ww_mu_only"`
	ZZMuOnly      bool             `yaml:"zz_mu_only"`
}

type DifermionConfig struct {
	Distr string                  `yaml:"distr" validate:"required"`
	Pars  setuphelp.DifermionPars `yaml:"pars"`
}

// ModifierConfig changes the completed setup at one energy.
type ModifierConfig struct {
	Energy     int               `yaml:"energy" validate:"required,gt=0"`
	Afs        []AfConfig        `yaml:"afs" validate:"dive"`
	Difermions []DifermionConfig `yaml:"difermions" validate:"dive"`
}

type OrderingConfig struct {
	Order []string            `yaml:"order" validate:"required,min=1"`
	IDs   map[string][]string `yaml:"ids"`
}

type CutPar struct {
	Name string  `yaml:"name" validate:"required"`
	Val  float64 `yaml:"val"`
}

type RunnerConfig struct {
	Chain      string   `yaml:"chain"`
	Toys       int      `yaml:"toys" validate:"gte=0"`
	Threads    int      `yaml:"threads" validate:"gte=0"`
	Seed       uint64   `yaml:"seed"`
	BinCut     *float64 `yaml:"bin_cut"`
	ParsForCut []CutPar `yaml:"pars_for_cut" validate:"dive"`
}

type StoreConfig struct {
	Driver  string        `yaml:"driver" validate:"required,oneof=sqlite postgres redis"`
	DSN     string        `yaml:"dsn" validate:"required_unless=Driver redis"`
	Addr    string        `yaml:"addr" validate:"required_if=Driver redis"`
	DB      int           `yaml:"db" validate:"gte=0"`
	TTL     time.Duration `yaml:"ttl"`
	Timeout time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("chirality", func(fl validator.FieldLevel) bool {
		return slices.Contains(names.ChiralConfigs, fl.Field().String())
	})
	_ = validate.RegisterValidation("polsign", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "+" || s == "-"
	})
}

// Load reads and validates a run configuration.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML and fills defaults before validating.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse run config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Runner.Chain == "" {
		c.Runner.Chain = names.Migrad.String()
	}
	for i := range c.TGCs {
		if c.TGCs[i].Style == "" {
			c.TGCs[i].Style = string(setuphelp.TGCStyleJB)
		}
	}
	if c.Store != nil && c.Store.Timeout == 0 {
		c.Store.Timeout = 10 * time.Second
	}
}

// Validate checks struct tags and the constraints spanning fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := names.ParseMinimizerChain(c.Runner.Chain); err != nil {
		return fmt.Errorf("%w: runner chain: %w", ErrInvalidConfig, err)
	}

	energies := c.SetupEnergies()
	for _, r := range c.Runs {
		if !slices.Contains(energies, r.Energy) {
			return fmt.Errorf("%w: run at %d GeV is not a setup energy", ErrInvalidConfig, r.Energy)
		}
	}
	if c.Setup == SetupGeneral && len(c.Runs) != 1 {
		return fmt.Errorf("%w: general setup takes exactly one run, got %d", ErrInvalidConfig, len(c.Runs))
	}
	if c.Modifier != nil && !slices.Contains(energies, c.Modifier.Energy) {
		return fmt.Errorf("%w: modifier at %d GeV is not a setup energy", ErrInvalidConfig, c.Modifier.Energy)
	}
	if c.Ordering != nil && c.Ordering.IDs != nil {
		for _, cat := range c.Ordering.Order {
			if _, ok := c.Ordering.IDs[cat]; !ok {
				return fmt.Errorf("%w: ordering category %q has no ids", ErrInvalidConfig, cat)
			}
		}
	}
	return nil
}

// SetupEnergies lists the energies the configured setup covers.
func (c *Config) SetupEnergies() []int {
	if c.Setup == SetupGeneral {
		return []int{c.Energy}
	}
	return slices.Clone(c.Energies)
}
