package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	appevents "github.com/rescp17/imageReceiver/internal/app_events"
	receiverEvent "github.com/rescp17/imageReceiver/internal/app_events/receiver"
	"github.com/rescp17/imageReceiver/internal/style"
	"github.com/rescp17/imageReceiver/internal/util"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

// receiverState defines the different states of the receiver UI
type receiverState int

const (
	awaitingImage receiverState = iota
	receivingImage
	stopping
)

// recentLimit is how many finished images the list keeps.
const recentLimit = 5

type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap provides sensible default keybindings.
var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type recentImage struct {
	path    string
	size    int
	outcome transfer.Outcome
	missing int
}

type receiverModel struct {
	ctx    context.Context
	cancel context.CancelFunc
	app    AppController
	info   ListenInfo

	state    receiverState
	spinner  spinner.Model
	progress progress.Model
	current  transfer.Progress
	gaps     []int
	recent   []recentImage
	status   string

	lastError error
	runErr    error
}

func newReceiverModel(ctx context.Context, app AppController, info ListenInfo) receiverModel {
	ctx, cancel := context.WithCancel(ctx)
	return receiverModel{
		ctx:      ctx,
		cancel:   cancel,
		app:      app,
		info:     info,
		state:    awaitingImage,
		spinner:  style.NewSpinner(),
		progress: style.NewProgressBar(40),
	}
}

func (m receiverModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Quit) && m.state != stopping {
			m.state = stopping
			m.status = "Stopping..."
			// Run finalizes any partial image and returns; appDoneMsg quits.
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		width := msg.Width - 10
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.progress.Width = width
		}
		return m, nil

	case appDoneMsg:
		m.runErr = msg.err
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case receiverEvent.SessionStartedMsg:
		if m.state != stopping {
			m.state = receivingImage
		}
		m.current = transfer.Progress{SessionID: msg.SessionID, DeclaredSize: msg.DeclaredSize}
		m.gaps = nil
		m.status = fmt.Sprintf("Receiving %s image", util.FormatSize(int64(msg.DeclaredSize)))
		return m, m.listenForAppMessages()

	case receiverEvent.ProgressMsg:
		if msg.Progress.SessionID == m.current.SessionID {
			m.current = msg.Progress
		}
		return m, m.listenForAppMessages()

	case receiverEvent.GapsMsg:
		m.gaps = msg.Missing
		return m, m.listenForAppMessages()

	case receiverEvent.ImageReadyMsg:
		m.addRecent(msg)
		if m.state != stopping {
			m.state = awaitingImage
		}
		m.current = transfer.Progress{}
		m.gaps = nil
		m.status = fmt.Sprintf("Image %s", msg.Result.Outcome)
		return m, m.listenForAppMessages()

	case appevents.ErrorMsg:
		m.lastError = msg.Err
		return m, m.listenForAppMessages()

	case appevents.StatusUpdateMsg:
		m.status = msg.Message
		return m, m.listenForAppMessages()
	}

	return m, nil
}

func (m *receiverModel) addRecent(msg receiverEvent.ImageReadyMsg) {
	entry := recentImage{
		path:    msg.Path,
		size:    len(msg.Result.Bytes),
		outcome: msg.Result.Outcome,
		missing: len(msg.Result.MissingIndices),
	}
	m.recent = append([]recentImage{entry}, m.recent...)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[:recentLimit]
	}
}

func (m receiverModel) View() string {
	var b strings.Builder

	b.WriteString(style.TitleStyle.Render("Image receiver"))
	b.WriteString("\n")
	b.WriteString(style.HelpStyle.Render(fmt.Sprintf("%s on %s, saving to %s", m.info.Transport, m.info.Address, m.info.OutputDir)))
	b.WriteString("\n\n")

	switch m.state {
	case awaitingImage:
		b.WriteString(fmt.Sprintf(" %s Waiting for an image...\n", m.spinner.View()))
	case receivingImage:
		b.WriteString(fmt.Sprintf(" %s %s\n", m.spinner.View(), m.status))
		b.WriteString(" " + m.progress.ViewAs(m.current.Percentage()/100) + "\n")
		b.WriteString(fmt.Sprintf(" %d/%d packets, %s of %s\n",
			m.current.ReceivedPackets, m.current.ExpectedPackets,
			util.FormatSize(int64(m.current.ReceivedBytes)), util.FormatSize(int64(m.current.DeclaredSize))))
		if len(m.gaps) > 0 {
			b.WriteString(style.WarningStyle.Render(fmt.Sprintf(" waiting for %d missing packets %s", len(m.gaps), util.FormatIndices(m.gaps, 10))))
			b.WriteString("\n")
		}
	case stopping:
		b.WriteString(fmt.Sprintf(" %s %s\n", m.spinner.View(), m.status))
	}

	if len(m.recent) > 0 {
		b.WriteString("\n")
		b.WriteString(style.HeaderStyle.Render(util.PadRight("Image", 36) + util.PadLeft("Size", 10) + "  " + "Result"))
		b.WriteString("\n")
		for _, r := range m.recent {
			name := filepath.Base(r.path)
			if r.path == "" {
				name = "(not saved)"
			}
			line := util.PadRight(name, 36) + util.PadLeft(util.FormatSize(int64(r.size)), 10) + "  "
			result := r.outcome.String()
			if r.missing > 0 {
				result = fmt.Sprintf("%s, %d missing", result, r.missing)
			}
			if r.outcome == transfer.OutcomeCompleted && r.missing == 0 {
				line += style.SuccessStyle.Render(result)
			} else {
				line += style.WarningStyle.Render(result)
			}
			b.WriteString(line + "\n")
		}
	}

	stats := m.app.Stats()
	b.WriteString("\n")
	b.WriteString(style.HelpStyle.Render(fmt.Sprintf("frames %d  duplicates %d  malformed %d  images %d ok / %d degraded",
		stats.FramesReceived, stats.DuplicatePackets, stats.MalformedFrames, stats.SessionsCompleted, stats.SessionsDegraded)))
	b.WriteString("\n")

	if m.lastError != nil {
		b.WriteString(style.ErrorStyle.Render("Error: " + m.lastError.Error()))
		b.WriteString("\n")
	}

	help := fmt.Sprintf("%s %s", DefaultKeyMap.Quit.Help().Key, DefaultKeyMap.Quit.Help().Desc)
	b.WriteString(style.HelpStyle.Render(help))

	return style.DocStyle.Render(b.String())
}
