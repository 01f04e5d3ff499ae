package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

// AppController is the part of the receiver App the TUI drives.
type AppController interface {
	Run(ctx context.Context) error
	UIMessages() <-chan tea.Msg
	Stats() transfer.StatsSnapshot
}

// ListenInfo describes where the receiver is listening, for the header.
type ListenInfo struct {
	Transport string
	Address   string
	OutputDir string
}

// appDoneMsg is sent when AppController.Run returns.
type appDoneMsg struct {
	err error
}

// Run shows the TUI until the receiver stops and returns the receiver's error.
func Run(ctx context.Context, app AppController, info ListenInfo, opts ...tea.ProgramOption) error {
	m := newReceiverModel(ctx, app, info)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		m.cancel()
		return err
	}
	return final.(receiverModel).runErr
}

func (m receiverModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runApp(),
		m.listenForAppMessages(),
	)
}

// runApp runs the receiver and reports when it stops.
func (m receiverModel) runApp() tea.Cmd {
	return func() tea.Msg {
		return appDoneMsg{err: m.app.Run(m.ctx)}
	}
}

// listenForAppMessages is a command that listens for messages from the app controller.
func (m receiverModel) listenForAppMessages() tea.Cmd {
	ch := m.app.UIMessages()
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
