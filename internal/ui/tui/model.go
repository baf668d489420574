package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/provisioning"
)

// maxWarnings is how many recent warnings the view keeps.
const maxWarnings = 5

// deployPhases holds the names of the deployment phases.
var deployPhases = func() map[string]bool {
	names := make(map[string]bool)
	for _, phase := range orchestration.Phases() {
		names[phase.Name()] = true
	}
	return names
}()

// PhaseRow is one phase of the run as displayed.
type PhaseRow struct {
	Name     string
	Done     bool
	Active   bool
	Err      string
	Duration string
}

// Resource statuses shown in the resource list.
const (
	StatusCreating = "creating"
	StatusCreated  = "created"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusDeleting = "deleting"
	StatusDeleted  = "deleted"
)

// ResourceRow is one resource as displayed, keyed by its state key.
type ResourceRow struct {
	Key    string
	Kind   string
	Status string
	Detail string
}

// Model is the Bubble Tea model for the deployment progress view.
type Model struct {
	// Run info
	Environment string
	Region      string
	RunID       string

	Phases    []PhaseRow
	Resources []ResourceRow
	Warnings  []string
	LastLog   string

	// Confirm is set while a rollback question is open.
	Confirm *ConfirmRollbackMsg

	// Animation
	SpinnerFrame int

	// UI state
	Width     int
	Height    int
	StartTime time.Time
	Err       error
	Done      bool
	Success   bool
}

// NewDeployModel creates a model with one row per deployment phase.
func NewDeployModel(environment, region, runID string) Model {
	m := Model{
		Environment: environment,
		Region:      region,
		RunID:       runID,
		StartTime:   time.Now(),
	}
	for _, phase := range orchestration.Phases() {
		m.Phases = append(m.Phases, PhaseRow{Name: phase.Name()})
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Confirm != nil {
			m.answer(msg.String())
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.applyEvent(msg.Event)

	case LogMsg:
		if msg.Warn {
			m.addWarning(msg.Text)
		} else {
			m.LastLog = msg.Text
		}

	case ConfirmRollbackMsg:
		m.Confirm = &msg

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.Success = msg.Success
		return m, tea.Quit
	}

	return m, nil
}

// answer resolves an open rollback question. Anything but yes is no,
// except keys that are ignored while the question stays open.
func (m *Model) answer(key string) {
	var yes bool
	switch key {
	case "y", "Y":
		yes = true
	case "n", "N", "esc", "q", "ctrl+c", "enter":
	default:
		return
	}
	m.Confirm.Reply <- yes
	m.Confirm = nil
}

func (m *Model) applyEvent(ev provisioning.Event) {
	switch ev.Type {
	case provisioning.EventPhaseStarted:
		row := m.phase(ev.Phase)
		row.Active = true
	case provisioning.EventPhaseCompleted:
		row := m.phase(ev.Phase)
		row.Active = false
		row.Done = true
		row.Duration = strings.TrimPrefix(ev.Message, "completed in ")
	case provisioning.EventPhaseFailed:
		row := m.phase(ev.Phase)
		row.Active = false
		row.Err = strings.TrimPrefix(ev.Message, "failed: ")
	case provisioning.EventResourceCreating:
		m.resource(ev).Status = StatusCreating
	case provisioning.EventResourceCreated:
		row := m.resource(ev)
		row.Status = StatusCreated
		if addr := ev.Fields["address"]; addr != "" {
			row.Detail = addr
		}
	case provisioning.EventResourceFailed:
		row := m.resource(ev)
		row.Status = StatusFailed
		row.Detail = ev.Message
	case provisioning.EventResourceSkipped:
		row := m.resource(ev)
		row.Status = StatusSkipped
		row.Detail = strings.TrimPrefix(ev.Message, "skipped: ")
	case provisioning.EventResourceDeleting:
		m.resource(ev).Status = StatusDeleting
	case provisioning.EventResourceDeleted:
		m.resource(ev).Status = StatusDeleted
	case provisioning.EventStepWarning:
		m.addWarning(fmt.Sprintf("%s: %s", ev.Resource, ev.Message))
	}
}

// phase returns the row for a phase event, adding one for phases that
// are not part of the deployment such as rollback.
func (m *Model) phase(name string) *PhaseRow {
	name = phaseName(name)
	for i := range m.Phases {
		if m.Phases[i].Name == name {
			return &m.Phases[i]
		}
	}
	m.Phases = append(m.Phases, PhaseRow{Name: name})
	return &m.Phases[len(m.Phases)-1]
}

func (m *Model) resource(ev provisioning.Event) *ResourceRow {
	for i := range m.Resources {
		if m.Resources[i].Key == ev.Resource {
			return &m.Resources[i]
		}
	}
	m.Resources = append(m.Resources, ResourceRow{Key: ev.Resource, Kind: ev.Fields["kind"]})
	return &m.Resources[len(m.Resources)-1]
}

func (m *Model) addWarning(text string) {
	m.Warnings = append(m.Warnings, text)
	if len(m.Warnings) > maxWarnings {
		m.Warnings = m.Warnings[len(m.Warnings)-maxWarnings:]
	}
}

// phaseName strips the "(i/n)" position suffix phase events carry.
func phaseName(s string) string {
	if i := strings.Index(s, " ("); i >= 0 {
		return s[:i]
	}
	return s
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
