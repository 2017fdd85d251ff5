package analyzer

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-structure/internal/pivot"
	"github.com/rxtech-lab/argo-structure/internal/signal"
	"github.com/rxtech-lab/argo-structure/internal/stroke"
	"github.com/rxtech-lab/argo-structure/internal/types"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of one analysis context.
type Config struct {
	Symbol string `yaml:"symbol" json:"symbol" mapstructure:"symbol" jsonschema:"title=Symbol,description=Instrument the context analyzes"`
	Period string `yaml:"period" json:"period" mapstructure:"period" jsonschema:"title=Period,description=Bar period of the context (e.g. 1m or 1d)"`

	FractalValidity  types.FractalValidity  `yaml:"fractal_validity" json:"fractal_validity" mapstructure:"fractal_validity" validate:"oneof=extremum window range" jsonschema:"title=Fractal Validity,description=How strictly a stroke's end fractal must clear its start,enum=extremum,enum=window,enum=range,default=extremum"`
	StrokeSeparation types.StrokeSeparation `yaml:"stroke_separation" json:"stroke_separation" mapstructure:"stroke_separation" validate:"oneof=standard relaxed" jsonschema:"title=Stroke Separation,description=Minimum distance between stroke anchors,enum=standard,enum=relaxed,default=standard"`

	StrokePivotTypes  []types.PivotType `yaml:"stroke_pivot_types" json:"stroke_pivot_types" mapstructure:"stroke_pivot_types" validate:"unique,dive,oneof=standard segment_inner" jsonschema:"title=Stroke Pivot Types,description=Pivot types computed over strokes"`
	SegmentPivotTypes []types.PivotType `yaml:"segment_pivot_types" json:"segment_pivot_types" mapstructure:"segment_pivot_types" validate:"unique,dive,oneof=standard" jsonschema:"title=Segment Pivot Types,description=Pivot types computed over segments"`

	TrendDivergenceBand types.BandComparison `yaml:"trend_divergence_band" json:"trend_divergence_band" mapstructure:"trend_divergence_band" validate:"oneof=zg_zd zg_dd gg_dd" jsonschema:"title=Trend Divergence Band,description=Bands compared to decide a trend between two pivots,enum=zg_zd,enum=zg_dd,enum=gg_dd,default=zg_zd"`

	MomentumAmplified  bool `yaml:"momentum_amplified" json:"momentum_amplified" mapstructure:"momentum_amplified" jsonschema:"title=Momentum Amplified,description=Double the MACD histogram,default=false"`
	ExposePendingPivot bool `yaml:"expose_pending_pivot" json:"expose_pending_pivot" mapstructure:"expose_pending_pivot" jsonschema:"title=Expose Pending Pivot,description=Publish and classify against the pivot that is still open,default=true"`
	PivotExpansion     bool `yaml:"pivot_expansion" json:"pivot_expansion" mapstructure:"pivot_expansion" jsonschema:"title=Pivot Expansion,description=Merge adjacent pivots whose outer bands overlap,default=true"`

	MACDFast   int `yaml:"macd_fast" json:"macd_fast" mapstructure:"macd_fast" validate:"min=1" jsonschema:"title=MACD Fast,description=Fast EMA period,minimum=1,default=12"`
	MACDSlow   int `yaml:"macd_slow" json:"macd_slow" mapstructure:"macd_slow" validate:"gtfield=MACDFast" jsonschema:"title=MACD Slow,description=Slow EMA period; must exceed the fast period,minimum=2,default=26"`
	MACDSignal int `yaml:"macd_signal" json:"macd_signal" mapstructure:"macd_signal" validate:"min=1" jsonschema:"title=MACD Signal,description=Signal EMA period,minimum=1,default=9"`

	Promotion []pivot.PromotionRule `yaml:"promotion" json:"promotion" mapstructure:"promotion" validate:"dive" jsonschema:"title=Promotion,description=Rules that regroup long pivots into higher levels"`

	PricePrecision *int32 `yaml:"price_precision,omitempty" json:"price_precision,omitempty" mapstructure:"price_precision" validate:"omitempty,min=0,max=16" jsonschema:"title=Price Precision,description=Round prices to this many decimal places,minimum=0,maximum=16"`
}

// EmptyConfig returns the default configuration.
func EmptyConfig() Config {
	return Config{
		FractalValidity:     types.FractalValidityExtremum,
		StrokeSeparation:    types.StrokeSeparationStandard,
		StrokePivotTypes:    []types.PivotType{types.PivotTypeStandard},
		SegmentPivotTypes:   []types.PivotType{types.PivotTypeStandard},
		TrendDivergenceBand: types.BandComparisonZGZD,
		ExposePendingPivot:  true,
		PivotExpansion:      true,
		MACDFast:            12,
		MACDSlow:            26,
		MACDSignal:          9,
		Promotion:           pivot.DefaultPromotionRules(),
	}
}

// TestConfig returns a small configuration for tests.
func TestConfig() Config {
	config := EmptyConfig()
	config.Symbol = "TEST"
	config.Period = "1m"

	return config
}

// ConfigFromYAML decodes a YAML (or JSON) document over the defaults.
func ConfigFromYAML(data []byte) (Config, error) {
	config := EmptyConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeParseFailed, "failed to parse configuration", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// ConfigFromMap decodes a map of named options over the defaults.
// Unknown keys are ignored.
func ConfigFromMap(options map[string]any) (Config, error) {
	config := EmptyConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create decoder", err)
	}

	if err := decoder.Decode(options); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode configuration", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}

// Precision returns the configured price precision, if any.
func (c Config) Precision() optional.Option[int32] {
	if c.PricePrecision == nil {
		return optional.None[int32]()
	}

	return optional.Some(*c.PricePrecision)
}

func (c Config) strokeConfig() stroke.Config {
	return stroke.Config{
		Validity:   c.FractalValidity,
		Separation: c.StrokeSeparation,
	}
}

func (c Config) pivotConfig(pivotType types.PivotType) pivot.Config {
	return pivot.Config{
		Type:      pivotType,
		Promotion: c.Promotion,
		Expansion: c.PivotExpansion,
	}
}

func (c Config) signalConfig() signal.Config {
	return signal.Config{TrendBand: c.TrendDivergenceBand}
}

// GetConfigSchema returns the JSON schema for Config.
func GetConfigSchema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{}) //nolint:exhaustruct // Empty config for schema generation

	data, err := json.Marshal(schema)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeWriteFailed, "failed to marshal schema", err)
	}

	return string(data), nil
}
