// Package tui is a terminal dashboard for a running argo-signal server.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-signal/internal/types"
)

// Application states.
const (
	StateServerInput = iota
	StateEngines
	StateActions
)

// maxEventLines is how many recent trade and error lines are shown.
const maxEventLines = 8

// Model is the Bubble Tea model of the engine dashboard.
type Model struct {
	state       int
	serverInput textinput.Model
	engineTable table.Model
	actionList  list.Model
	statuses    map[types.StrategyName]types.EngineStatus
	prevPnL     map[types.StrategyName]float64
	events      []string
	selected    types.StrategyName
	server      string
	notice      string
	err         error
	width       int
	height      int

	client       *Client
	streamCancel context.CancelFunc
	program      *tea.Program
}

// NewModel creates a Model asking for the server address, prefilled with server.
func NewModel(server string) Model {
	return Model{
		state:        StateServerInput,
		serverInput:  NewServerInput(server),
		engineTable:  NewEngineTable(),
		actionList:   NewActionList(),
		statuses:     make(map[types.StrategyName]types.EngineStatus),
		prevPnL:      make(map[types.StrategyName]float64),
		events:       nil,
		selected:     "",
		server:       "",
		notice:       "",
		err:          nil,
		width:        0,
		height:       0,
		client:       nil,
		streamCancel: nil,
		program:      nil,
	}
}

// SetProgram sets the tea.Program reference for sending messages from goroutines.
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.streamCancel != nil {
		m.streamCancel()
	}

	return m, tea.Quit
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.quit()
		case "q":
			if m.state != StateServerInput {
				return m.quit()
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.actionList.SetSize(msg.Width, msg.Height-4)
		m.engineTable.SetWidth(msg.Width)
		m.engineTable.SetHeight(min(len(m.statuses)+2, max(msg.Height-maxEventLines-8, 3)))

		return m, nil

	case StatusMsg:
		name := msg.Status.Engine
		if existing, ok := m.statuses[name]; ok {
			m.prevPnL[name] = existing.UnrealizedPnL
		}

		m.statuses[name] = msg.Status
		m.engineTable = UpdateTableRows(m.engineTable, m.statuses, m.prevPnL)

		return m, nil

	case EventMsg:
		m.events = append(m.events, msg.Line)
		if len(m.events) > maxEventLines {
			m.events = m.events[len(m.events)-maxEventLines:]
		}

		return m, nil

	case StreamErrorMsg:
		m.err = msg.Err

		return m, nil

	case StreamStartedMsg:
		m.streamCancel = msg.Cancel
		m.state = StateEngines

		return m, nil

	case ActionResultMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.notice = ""
		} else {
			m.err = nil
			m.notice = fmt.Sprintf("%s: %s sent", msg.Engine, msg.Action)
		}

		return m, nil
	}

	switch m.state {
	case StateServerInput:
		return m.updateServerInput(msg)
	case StateEngines:
		return m.updateEngines(msg)
	case StateActions:
		return m.updateActions(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateActions:
		m.state = StateEngines
	case StateEngines:
		if m.streamCancel != nil {
			m.streamCancel()
			m.streamCancel = nil
		}

		m.statuses = make(map[types.StrategyName]types.EngineStatus)
		m.prevPnL = make(map[types.StrategyName]float64)
		m.events = nil
		m.err = nil
		m.notice = ""
		m.engineTable.SetRows(nil)
		m.serverInput.Focus()
		m.state = StateServerInput

		return m, textinput.Blink
	}

	return m, nil
}

func (m Model) updateServerInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		server, err := NormalizeServerURL(m.serverInput.Value())
		if err != nil {
			m.err = err

			return m, nil
		}

		m.server = server
		m.client = NewClient(server)
		m.err = nil
		m.serverInput.Blur()

		return m, m.startStreaming()
	}

	var cmd tea.Cmd
	m.serverInput, cmd = m.serverInput.Update(msg)

	return m, cmd
}

func (m Model) updateEngines(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if row := m.engineTable.SelectedRow(); len(row) > 0 {
			m.selected = types.StrategyName(row[0])
			m.state = StateActions

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.engineTable, cmd = m.engineTable.Update(msg)

	return m, cmd
}

func (m Model) updateActions(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if item, ok := m.actionList.SelectedItem().(listItem); ok && m.client != nil {
			m.state = StateEngines
			m.notice = fmt.Sprintf("%s: sending %s...", m.selected, item.name)

			return m, m.client.actionCmd(m.selected, item.name)
		}
	}

	var cmd tea.Cmd
	m.actionList, cmd = m.actionList.Update(msg)

	return m, cmd
}

// startStreaming returns a command that connects to the status stream.
func (m Model) startStreaming() tea.Cmd {
	program := m.program
	wsURL := StreamURL(m.server)

	return func() tea.Msg {
		if program == nil {
			return StreamErrorMsg{Err: fmt.Errorf("program not set")}
		}

		ctx, cancel := context.WithCancel(context.Background())
		go stream(ctx, program, wsURL)

		return StreamStartedMsg{Cancel: cancel}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateServerInput:
		s.WriteString(TitleStyle.Render("Argo Signal - Connect"))
		s.WriteString("\n\n")
		s.WriteString("Enter the address of a running argo-signal server:\n\n")
		s.WriteString(m.serverInput.View())
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		s.WriteString(HelpStyle.Render("Press Enter to connect, ctrl+c to quit"))

	case StateEngines:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Engines - %s", m.server)))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		} else if m.notice != "" {
			s.WriteString(m.notice)
			s.WriteString("\n\n")
		}

		if len(m.statuses) == 0 {
			s.WriteString("Waiting for status...\n")
		} else {
			s.WriteString(m.engineTable.View())
			s.WriteString("\n")
		}

		if len(m.events) > 0 {
			s.WriteString("\n")
			s.WriteString(TitleStyle.Render("Recent events"))
			s.WriteString("\n")
			s.WriteString(strings.Join(m.events, "\n"))
			s.WriteString("\n")
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Enter: actions | q: quit | Esc: disconnect"))

	case StateActions:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Actions - %s", m.selected)))
		s.WriteString("\n\n")
		s.WriteString(m.actionList.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to send, Esc to go back"))
	}

	return s.String()
}
