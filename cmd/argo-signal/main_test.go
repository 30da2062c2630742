package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-signal/internal/config"
	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/notify"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli/v3"
)

type MainTestSuite struct {
	suite.Suite
}

func TestMainSuite(t *testing.T) {
	suite.Run(t, new(MainTestSuite))
}

func (s *MainTestSuite) run(args ...string) error {
	cmd := &cli.Command{
		Name: "argo-signal",
		Commands: []*cli.Command{
			{Name: "schema", Action: schemaAction},
			{Name: "suggest", Flags: configFlags(), Action: suggestAction},
		},
	}

	return cmd.Run(context.Background(), append([]string{"argo-signal"}, args...))
}

func (s *MainTestSuite) TestSchema() {
	s.NoError(s.run("schema", "bollinger"))
	s.NoError(s.run("schema", "settings"))

	err := s.run("schema", "grid")
	s.True(errors.HasCode(err, errors.ErrCodeUnsupportedStrategy))

	err = s.run("schema")
	s.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (s *MainTestSuite) TestSuggestNeedsTwoAssets() {
	err := s.run("suggest", "ETH")
	s.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (s *MainTestSuite) TestOpenStore() {
	cfg := config.Default()

	store, err := openStore(&cfg)
	s.Require().NoError(err)
	s.IsType(&history.MemoryStore{}, store)
	s.NoError(store.Close())

	cfg.History.Path = filepath.Join(s.T().TempDir(), "history.duckdb")

	store, err = openStore(&cfg)
	s.Require().NoError(err)
	s.IsType(&history.DuckDBStore{}, store)
	s.NoError(store.Close())
}

func (s *MainTestSuite) TestNotifierFollowsConfig() {
	cfg := config.Default()

	n, err := newNotifier(&cfg, logger.NewNopLogger())
	s.Require().NoError(err)
	s.IsType(notify.NopNotifier{}, n)

	cfg.Telegram.Enabled = true
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = "not-a-number"

	_, err = newNotifier(&cfg, logger.NewNopLogger())
	s.True(errors.HasCode(err, errors.ErrCodeConfigInvalid))
}
