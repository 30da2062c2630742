package tui

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// listItem implements list.Item for the engine action menu.
type listItem struct {
	name        string
	description string
}

func (i listItem) Title() string       { return i.name }
func (i listItem) Description() string { return i.description }
func (i listItem) FilterValue() string { return i.name }

// NewActionList creates the menu of actions that can be sent to one engine.
func NewActionList() list.Model {
	items := []list.Item{
		listItem{name: "start", description: "Start the tick loop"},
		listItem{name: "stop", description: "Stop the tick loop after the in-flight tick"},
		listItem{name: "preview", description: "Evaluate current prices without trading"},
		listItem{name: "sync", description: "Reconcile the ledger with exchange balances"},
		listItem{name: "reset", description: "Clear the ledger and realized PnL"},
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Engine Actions"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// NewServerInput creates the text input for the API address.
func NewServerInput(initial string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "http://localhost:8080"
	ti.SetValue(initial)
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "> "

	return ti
}

// NormalizeServerURL turns user input into an http(s) base URL without a trailing slash.
func NormalizeServerURL(input string) (string, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return "", errors.New(errors.ErrCodeMissingParameter, "server address is empty")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "invalid server address %q", input)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported scheme %q", u.Scheme)
	}

	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

// StreamURL returns the websocket URL of the status stream for a base URL.
func StreamURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	default:
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	}
}

// NewEngineTable creates the table of engine statuses.
func NewEngineTable() table.Model {
	columns := []table.Column{
		{Title: "Engine", Width: 16},
		{Title: "State", Width: 8},
		{Title: "Trading", Width: 8},
		{Title: "Position", Width: 22},
		{Title: "Realized", Width: 14},
		{Title: "Unrealized", Width: 14},
		{Title: "Last Decision", Width: 24},
		{Title: "Sync", Width: 5},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(6),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

func formatPosition(p types.Position) string {
	if p.HeldAsset == "" || p.HeldQty.IsZero() {
		return string(p.State)
	}

	return fmt.Sprintf("%s %s %s", p.State, p.HeldQty.StringFixed(4), p.HeldAsset)
}

func formatDecision(d *types.Decision) string {
	if d == nil {
		return "-"
	}

	return fmt.Sprintf("%s/%s", d.Action, d.Reason)
}

// sortedEngines returns the engine names in a stable order.
func sortedEngines(statuses map[types.StrategyName]types.EngineStatus) []types.StrategyName {
	names := make([]types.StrategyName, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// UpdateTableRows updates the table with the latest engine statuses.
func UpdateTableRows(t table.Model, statuses map[types.StrategyName]types.EngineStatus, prevPnL map[types.StrategyName]float64) table.Model {
	rows := make([]table.Row, 0, len(statuses))

	for _, name := range sortedEngines(statuses) {
		st := statuses[name]

		trading := "off"
		if st.Enabled {
			trading = "on"
		}

		sync := ""
		if st.NeedsSync {
			sync = "!"
		}

		rows = append(rows, table.Row{
			string(name),
			string(st.State),
			trading,
			formatPosition(st.Position),
			fmt.Sprintf("%+.4f", st.RealizedPnL),
			FormatPnL(st.UnrealizedPnL, prevPnL[name]),
			formatDecision(st.LastDecision),
			sync,
		})
	}

	t.SetRows(rows)

	return t
}
