package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/config"
	"github.com/greymark/gatewatch/internal/console"
	"github.com/greymark/gatewatch/internal/state"
	"github.com/greymark/gatewatch/internal/telemetry"
	"github.com/greymark/gatewatch/internal/ui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live full-screen console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.con.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		m := newDashboard(ctx, a)
		p := tea.NewProgram(m, tea.WithAltScreen())

		// Wake the program whenever telemetry or the activity log moves.
		a.con.Reconciler.OnChange(func() {
			select {
			case m.refresh <- struct{}{}:
			default:
			}
		})
		a.con.Log.OnAppend(func(string) {
			select {
			case m.refresh <- struct{}{}:
			default:
			}
		})

		// A mid-session revocation (expired token, stream 401) re-prompts
		// for credentials right away instead of waiting for a keypress.
		if g, ok := a.gate.(interface{ OnRevoke(fn func(reason string)) }); ok {
			g.OnRevoke(func(reason string) {
				p.Send(revokedMsg{reason: reason})
			})
		}

		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("74"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1)
)

type refreshMsg struct{}

type authResultMsg struct{ err error }

type startedMsg struct{ err error }

type revokedMsg struct{ reason string }

type dashboard struct {
	ctx context.Context
	app *app

	refresh chan struct{}

	view    *state.View
	entries []string
	running bool

	// auth form
	formActive bool
	inputs     []textinput.Model
	focus      int
	formErr    string
	notice     string

	width  int
	height int
}

func newDashboard(ctx context.Context, a *app) *dashboard {
	d := &dashboard{
		ctx:     ctx,
		app:     a,
		refresh: make(chan struct{}, 1),
		view:    state.NewView(),
	}
	if a.variant == config.VariantServer {
		user := textinput.New()
		user.Placeholder = "username"
		user.CharLimit = 64
		pass := textinput.New()
		pass.Placeholder = "password"
		pass.EchoMode = textinput.EchoPassword
		pass.CharLimit = 128
		d.inputs = []textinput.Model{user, pass}
	} else {
		phrase := textinput.New()
		phrase.Placeholder = "passphrase"
		phrase.EchoMode = textinput.EchoPassword
		phrase.CharLimit = 128
		d.inputs = []textinput.Model{phrase}
	}
	return d
}

func (d *dashboard) Init() tea.Cmd {
	return tea.Batch(d.startConsole(), d.waitRefresh())
}

// startConsole brings the console up, or opens the auth form when a
// session is required and none can be resumed.
func (d *dashboard) startConsole() tea.Cmd {
	return func() tea.Msg {
		err := d.app.con.Start(d.ctx)
		return startedMsg{err: err}
	}
}

func (d *dashboard) waitRefresh() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-d.ctx.Done():
			return nil
		case <-d.refresh:
			return refreshMsg{}
		}
	}
}

func (d *dashboard) authorize(cred authz.Credentials) tea.Cmd {
	return func() tea.Msg {
		return authResultMsg{err: d.app.gate.Authorize(d.ctx, cred)}
	}
}

func (d *dashboard) openForm() {
	d.formActive = true
	d.formErr = ""
	d.notice = ""
	d.focus = 0
	for i := range d.inputs {
		d.inputs[i].SetValue("")
		d.inputs[i].Blur()
	}
	d.inputs[0].Focus()
}

func (d *dashboard) closeForm() {
	d.formActive = false
	for i := range d.inputs {
		d.inputs[i].Blur()
	}
}

func (d *dashboard) submitForm() tea.Cmd {
	var cred authz.Credentials
	if d.app.variant == config.VariantServer {
		cred.Username = strings.TrimSpace(d.inputs[0].Value())
		cred.Password = d.inputs[1].Value()
		if cred.Username == "" {
			d.formErr = "username is required"
			return nil
		}
	} else {
		cred.Passphrase = d.inputs[0].Value()
	}
	return d.authorize(cred)
}

func (d *dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case refreshMsg:
		d.view = d.app.con.View()
		d.entries = d.app.con.Log.Entries()
		return d, d.waitRefresh()

	case startedMsg:
		if msg.err != nil {
			if msg.err == console.ErrNotAuthorized {
				d.openForm()
				return d, nil
			}
			d.formErr = msg.err.Error()
			return d, nil
		}
		d.running = true
		d.view = d.app.con.View()
		d.entries = d.app.con.Log.Entries()
		return d, nil

	case revokedMsg:
		// The console must be restarted after the next sign-in: the
		// transport stopped retrying when the authorization died.
		d.running = false
		d.openForm()
		d.formErr = msg.reason
		return d, nil

	case authResultMsg:
		if msg.err != nil {
			d.formErr = msg.err.Error()
			return d, nil
		}
		d.closeForm()
		if !d.running {
			return d, d.startConsole()
		}
		d.entries = d.app.con.Log.Entries()
		return d, nil

	case tea.KeyMsg:
		if d.formActive {
			return d.updateForm(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return d, tea.Quit
		case "o":
			return d, d.dispatch(telemetry.ActionOpen)
		case "c":
			return d, d.dispatch(telemetry.ActionClose)
		case "t":
			return d, d.dispatch(telemetry.ActionToggle)
		case "p":
			return d, d.dispatch(telemetry.ActionPulse)
		case "l":
			if g, ok := d.app.gate.(*authz.DigestGate); ok && g.Open() {
				d.notice = "No passphrase configured — commands are open"
				return d, nil
			}
			if d.app.variant == config.VariantBroker && d.app.gate.CanCommand() {
				d.notice = "Commands already unlocked"
				return d, nil
			}
			d.openForm()
			return d, nil
		}
	}
	return d, nil
}

func (d *dashboard) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return d, tea.Quit
	case "esc":
		d.closeForm()
		return d, nil
	case "tab", "shift+tab", "up", "down":
		if len(d.inputs) > 1 {
			d.inputs[d.focus].Blur()
			if msg.String() == "shift+tab" || msg.String() == "up" {
				d.focus = (d.focus + len(d.inputs) - 1) % len(d.inputs)
			} else {
				d.focus = (d.focus + 1) % len(d.inputs)
			}
			d.inputs[d.focus].Focus()
		}
		return d, nil
	case "enter":
		if d.focus < len(d.inputs)-1 {
			d.inputs[d.focus].Blur()
			d.focus++
			d.inputs[d.focus].Focus()
			return d, nil
		}
		return d, d.submitForm()
	}
	var cmd tea.Cmd
	d.inputs[d.focus], cmd = d.inputs[d.focus].Update(msg)
	return d, cmd
}

func (d *dashboard) dispatch(action telemetry.Action) tea.Cmd {
	if !d.app.gate.CanCommand() {
		d.openForm()
		return nil
	}
	return func() tea.Msg {
		// Failures land in the activity log; the refresh repaints it.
		_ = d.app.con.Dispatch(d.ctx, action)
		return refreshMsg{}
	}
}

func (d *dashboard) View() string {
	if d.formActive {
		return d.formView()
	}

	var cards []string
	for _, key := range telemetry.InputKeys() {
		label := strings.ToUpper(string(key))
		value := mutedStyle.Render("OFF")
		if d.view.Inputs[key] {
			value = activeStyle.Render("ON")
		}
		cards = append(cards, cardStyle.Render(fmt.Sprintf("%-5s %s", label, value)))
	}
	gateCard := cardStyle.Render(fmt.Sprintf("%-5s %s", "GATE", titleStyle.Render(d.view.GateState)))
	row := lipgloss.JoinHorizontal(lipgloss.Top, append(cards, gateCard)...)

	signal := mutedStyle.Render(ui.LastSignal(d.view.LastUpdate))

	logLines := d.entries
	limit := d.height - lipgloss.Height(row) - 6
	if limit > 0 && len(logLines) > limit {
		logLines = logLines[:limit]
	}
	activity := titleStyle.Render("Activity") + "\n" + mutedStyle.Render(strings.Join(logLines, "\n"))

	help := "o open · c close · t toggle · p pulse · l sign in · q quit"
	if d.app.variant == config.VariantBroker {
		help = "o open · c close · t toggle · p pulse · l unlock · q quit"
	}

	out := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("gatewatch"),
		row,
		signal,
		"",
		activity,
		helpStyle.Render(help),
	)
	if d.notice != "" {
		out += "\n" + mutedStyle.Render(d.notice)
	}
	if d.formErr != "" {
		out += "\n" + errStyle.Render(d.formErr)
	}
	return out
}

func (d *dashboard) formView() string {
	title := "Sign in"
	if d.app.variant == config.VariantBroker {
		title = "Unlock commands"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")
	for i := range d.inputs {
		b.WriteString(d.inputs[i].View() + "\n")
	}
	if d.formErr != "" {
		b.WriteString("\n" + errStyle.Render(d.formErr))
	}
	b.WriteString(helpStyle.Render("\nenter submit · esc cancel"))
	return cardStyle.Render(b.String())
}
