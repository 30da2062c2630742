package tradingprovider

import (
	"testing"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BinanceConfigTestSuite struct {
	suite.Suite
}

func TestBinanceConfigTestSuite(t *testing.T) {
	suite.Run(t, new(BinanceConfigTestSuite))
}

func (suite *BinanceConfigTestSuite) TestValidate() {
	cfg := BinanceProviderConfig{ApiKey: "key", SecretKey: "secret", BaseURL: ""}
	suite.NoError(cfg.Validate())

	cfg.SecretKey = ""
	suite.True(errors.HasCode(cfg.Validate(), errors.ErrCodeConfigInvalid))

	cfg.SecretKey = "secret"
	cfg.BaseURL = "not a url"
	suite.True(errors.HasCode(cfg.Validate(), errors.ErrCodeConfigInvalid))
}

func (suite *BinanceConfigTestSuite) TestEnvironments() {
	suite.ElementsMatch([]string{"binance-testnet", "binance-live"}, GetSupportedEnvironments())

	quote, err := QuoteAssetFor(EnvironmentBinanceTestnet)
	suite.Require().NoError(err)
	suite.Equal("USDT", quote)

	quote, err = QuoteAssetFor(EnvironmentBinanceLive)
	suite.Require().NoError(err)
	suite.Equal("USDC", quote)

	_, err = QuoteAssetFor("kraken")
	suite.True(errors.HasCode(err, errors.ErrCodeConfigInvalid))

	schema, err := GetExchangeConfigSchema("binance-live")
	suite.Require().NoError(err)
	suite.Contains(schema, "apiKey")

	_, err = NewExchange(EnvironmentBinanceLive, BinanceProviderConfig{})
	suite.True(errors.HasCode(err, errors.ErrCodeConfigInvalid))
}
