package strategy

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// ToJSONSchema converts a struct to a JSON schema.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

// DefaultConfig returns the default config for a strategy.
func DefaultConfig(name types.StrategyName) (Config, error) {
	switch name {
	case types.StrategyMeanReversion:
		return DefaultMeanReversionConfig(), nil
	case types.StrategyBollinger:
		return DefaultBollingerConfig(), nil
	case types.StrategyTrendFollowing:
		return DefaultTrendConfig(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy: %s", name)
	}
}

// GetConfigSchema returns the JSON schema of a strategy's config, used to render config forms.
func GetConfigSchema(name types.StrategyName) (string, error) {
	switch name {
	case types.StrategyMeanReversion:
		return ToJSONSchema(&MeanReversionConfig{}) //nolint:exhaustruct // Empty config for schema generation
	case types.StrategyBollinger:
		return ToJSONSchema(&BollingerConfig{}) //nolint:exhaustruct // Empty config for schema generation
	case types.StrategyTrendFollowing:
		return ToJSONSchema(&TrendConfig{}) //nolint:exhaustruct // Empty config for schema generation
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy: %s", name)
	}
}

// ParseConfig decodes a JSON config for a strategy over its defaults and validates it.
func ParseConfig(name types.StrategyName, data []byte) (Config, error) {
	var (
		cfg Config
		err error
	)

	switch name {
	case types.StrategyMeanReversion:
		c := DefaultMeanReversionConfig()
		err = json.Unmarshal(data, &c)
		cfg = c
	case types.StrategyBollinger:
		c := DefaultBollingerConfig()
		err = json.Unmarshal(data, &c)
		cfg = c
	case types.StrategyTrendFollowing:
		c := DefaultTrendConfig()
		err = json.Unmarshal(data, &c)
		cfg = c
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy: %s", name)
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeConfigInvalid, err, "failed to parse %s config", name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
