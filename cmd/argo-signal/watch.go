package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-signal/internal/tui"
	"github.com/urfave/cli/v3"
)

func watchAction(_ context.Context, cmd *cli.Command) error {
	model := tui.NewModel(cmd.String("server"))
	p := tea.NewProgram(&model, tea.WithAltScreen())
	model.SetProgram(p)

	_, err := p.Run()

	return err
}
