package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/provisioning"
)

// DeployFunc runs a deployment, reporting through observer and asking
// decide before any rollback. It returns whether the run succeeded.
type DeployFunc func(ctx context.Context, observer provisioning.Observer, decide orchestration.RollbackDecider) bool

// RunDeployTUI shows the progress view while deploy runs in the
// background. Quitting the view cancels the run; a rollback question
// asked after the view closed goes to fallback, which may be nil.
func RunDeployTUI(
	ctx context.Context,
	m Model,
	deploy DeployFunc,
	fallback orchestration.RollbackDecider,
	opts ...tea.ProgramOption,
) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, opts...)
	s := &session{program: p, exited: make(chan struct{}), fallback: fallback}

	result := make(chan bool, 1)
	go func() {
		ok := deploy(ctx, s, s.decide)
		p.Send(DoneMsg{Success: ok})
		result <- ok
	}()

	finalModel, err := p.Run()
	close(s.exited)
	if fm, ok := finalModel.(Model); !ok || !fm.Done {
		// The view closed before the run ended.
		cancel()
	}
	success := <-result

	if err != nil {
		return success, fmt.Errorf("TUI error: %w", err)
	}
	return success, nil
}

// session forwards observer output to a running program.
type session struct {
	program  *tea.Program
	exited   chan struct{}
	fallback orchestration.RollbackDecider
}

var _ provisioning.Observer = (*session)(nil)

func (s *session) Printf(format string, v ...any) {
	s.program.Send(LogMsg{Text: fmt.Sprintf(format, v...)})
}

func (s *session) Warnf(format string, v ...any) {
	s.program.Send(LogMsg{Text: fmt.Sprintf(format, v...), Warn: true})
}

func (s *session) Event(event provisioning.Event) {
	s.program.Send(EventMsg{Event: event})
}

func (s *session) Progress(string, int, int) {}

func (s *session) WithFields(map[string]string) provisioning.Observer {
	return s
}

// decide asks the question in the view and waits for the answer.
func (s *session) decide(ctx context.Context, failure orchestration.Failure) bool {
	reply := make(chan bool, 1)
	select {
	case <-s.exited:
	default:
		s.program.Send(ConfirmRollbackMsg{Failure: failure, Reply: reply})
	}

	select {
	case answer := <-reply:
		return answer
	case <-s.exited:
		select {
		case answer := <-reply:
			return answer
		default:
		}
		if s.fallback == nil {
			return false
		}
		return s.fallback(ctx, failure)
	}
}
