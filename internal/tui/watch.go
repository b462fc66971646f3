// Terminal watcher for live session telemetry.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"drivesim/internal/hazard"
	"drivesim/internal/hub"
	"drivesim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// sampleMsg carries one telemetry update.
type sampleMsg struct{ sample telemetry.Sample }

// alertMsg carries a hazard alert, global or session-local.
type alertMsg struct {
	alert  hazard.Alert
	global bool
}

// statusMsg carries connection lifecycle notes for the log.
type statusMsg struct{ line string }

// disconnectMsg ends the program when the socket drops.
type disconnectMsg struct{ err error }

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	critStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// Watch connects to a drivesim server, subscribes to sessionID, and
// renders its telemetry until the user quits or ctx is cancelled.
func Watch(ctx context.Context, wsURL, sessionID string) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(hub.Envelope{
		Type: hub.MsgSubscribeTelemetry,
		Data: map[string]string{"sessionId": sessionID},
	}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	m := newWatchModel(sessionID)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	go readLoop(conn, p)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	return nil
}

// readLoop pumps server messages into the bubbletea program.
func readLoop(conn *websocket.Conn, p teaProgram) {
	for {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&env); err != nil {
			p.Send(disconnectMsg{err: err})
			return
		}
		switch env.Type {
		case hub.MsgTelemetryData:
			var payload struct {
				Telemetry telemetry.Sample `json:"telemetry"`
				Alert     *hazard.Alert    `json:"alert"`
			}
			if err := json.Unmarshal(env.Data, &payload); err == nil {
				p.Send(sampleMsg{sample: payload.Telemetry})
				if payload.Alert != nil {
					p.Send(alertMsg{alert: *payload.Alert})
				}
			}
		case hub.MsgGlobalAlert:
			var payload struct {
				Alert hazard.Alert `json:"alert"`
			}
			if err := json.Unmarshal(env.Data, &payload); err == nil {
				p.Send(alertMsg{alert: payload.Alert, global: true})
			}
		case hub.MsgConnectionEstablished:
			p.Send(statusMsg{line: "connected"})
		case hub.MsgSubscriptionConfirmed:
			p.Send(statusMsg{line: "subscription confirmed"})
		case hub.MsgSubscriptionError, hub.MsgError:
			p.Send(statusMsg{line: fmt.Sprintf("server error: %s", string(env.Data))})
		}
	}
}

type watchModel struct {
	sessionID string
	table     table.Model
	vp        viewport.Model
	logs      []string

	sample     telemetry.Sample
	haveSample bool
	samples    int
	alerts     int
	status     string
	autoscroll bool
	height     int
	err        error
}

func newWatchModel(sessionID string) watchModel {
	cols := []table.Column{
		{Title: "Speed km/h", Width: 12},
		{Title: "Lat", Width: 11},
		{Title: "Lng", Width: 11},
		{Title: "Obstacle m", Width: 12},
		{Title: "Progress m", Width: 12},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(2))
	return watchModel{
		sessionID:  sessionID,
		table:      t,
		vp:         viewport.New(0, 0),
		status:     "connecting",
		autoscroll: true,
	}
}

func (m watchModel) Init() tea.Cmd { return nil }

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "j", "down":
			m.vp.LineDown(1)
		case "k", "up":
			m.vp.LineUp(1)
		}
	case sampleMsg:
		m.sample = msg.sample
		m.haveSample = true
		m.samples++
		m.table.SetRows([]table.Row{{
			fmt.Sprintf("%.1f", msg.sample.Speed),
			fmt.Sprintf("%.5f", msg.sample.GPS.Lat),
			fmt.Sprintf("%.5f", msg.sample.GPS.Lng),
			fmt.Sprintf("%.1f", msg.sample.ObstacleDistance),
			fmt.Sprintf("%.0f", msg.sample.RouteProgress),
		}})
	case alertMsg:
		m.alerts++
		m.appendLog(renderAlertLine(msg.alert, msg.global))
	case statusMsg:
		m.status = msg.line
		m.appendLog(labelStyle.Render(fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg.line)))
	case disconnectMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *watchModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > 500 {
		m.logs = m.logs[len(m.logs)-500:]
	}
	m.refreshViewport()
}

func (m *watchModel) updateViewportHeight() {
	h := m.height - lipgloss.Height(m.table.View()) - 5
	if h < 1 {
		h = 1
	}
	m.vp.Height = h
}

func (m *watchModel) refreshViewport() {
	content := "no alerts yet"
	if len(m.logs) > 0 {
		content = strings.Join(m.logs, "\n")
	}
	m.vp.SetContent(content)
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m watchModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	header := titleStyle.Render(fmt.Sprintf("session %s", m.sessionID)) +
		labelStyle.Render(fmt.Sprintf("  %s  samples=%d alerts=%d", m.status, m.samples, m.alerts))
	sections := []string{
		header,
		m.table.View(),
		divider,
		"Alerts:",
		m.vp.View(),
		divider,
		labelStyle.Render("q quit | s toggle auto-scroll | j/k scroll"),
	}
	return strings.Join(sections, "\n")
}

func renderAlertLine(a hazard.Alert, global bool) string {
	style := mediumStyle
	switch a.Severity {
	case hazard.SeverityHigh:
		style = highStyle
	case hazard.SeverityCritical:
		style = critStyle
	}
	scope := ""
	if global {
		scope = " [global]"
	}
	return fmt.Sprintf("%s %s%s %s",
		labelStyle.Render(a.Timestamp.Format("15:04:05")),
		style.Render(fmt.Sprintf("%s/%s", a.Kind, a.Severity)),
		scope,
		a.Message)
}
