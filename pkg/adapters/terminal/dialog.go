package terminal

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

const MessageValueRequired = "Value cannot be empty"

// ErrNotInteractive is returned when a dialog needs an answer but
// AssumeYes is set and there is no default to fall back on.
var ErrNotInteractive = errors.New("dialog needs an interactive terminal")

// Dialog runs each confirm or prompt as its own small bubbletea program.
// Two dialogs never share the screen: a second call simply runs after the
// first one returned.
type Dialog struct {
	in  io.Reader
	out io.Writer
	// AssumeYes answers every confirm with yes and every prompt with its
	// default, without touching the terminal.
	AssumeYes bool
}

func NewDialog(in io.Reader, out io.Writer) *Dialog {
	return &Dialog{in: in, out: out}
}

func (d *Dialog) Confirm(ctx context.Context, title, message string, danger bool) (bool, error) {
	if d.AssumeYes {
		return true, nil
	}
	final, err := d.run(ctx, newConfirmModel(title, message, danger))
	if err != nil {
		return false, err
	}
	m := final.(confirmModel)
	return m.done && m.answer, nil
}

func (d *Dialog) Prompt(ctx context.Context, title, defaultValue string) (string, bool, error) {
	if d.AssumeYes {
		if v := strings.TrimSpace(defaultValue); v != "" {
			return v, true, nil
		}
		return "", false, ErrNotInteractive
	}
	return d.prompt(ctx, newPromptModel(title, defaultValue))
}

// Secret prompts with masked input. Surrounding spaces are part of a
// password, so the value is returned as typed.
func (d *Dialog) Secret(ctx context.Context, title string) (string, bool, error) {
	if d.AssumeYes {
		return "", false, ErrNotInteractive
	}
	m := newPromptModel(title, "")
	m.secret = true
	m.input.EchoMode = textinput.EchoPassword
	m.input.EchoCharacter = '•'
	return d.prompt(ctx, m)
}

func (d *Dialog) prompt(ctx context.Context, model promptModel) (string, bool, error) {
	final, err := d.run(ctx, model)
	if err != nil {
		return "", false, err
	}
	m := final.(promptModel)
	if !m.done {
		return "", false, nil
	}
	return m.value, true, nil
}

func (d *Dialog) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(d.in),
		tea.WithOutput(d.out),
	)
	return p.Run()
}

var _ ports.Dialog = (*Dialog)(nil)

type confirmFocus int

const (
	focusCancel confirmFocus = iota
	focusConfirm
)

type confirmModel struct {
	title   string
	message string
	danger  bool
	focus   confirmFocus
	answer  bool
	done    bool
}

// newConfirmModel focuses Cancel for destructive questions so a stray Enter
// does not delete anything.
func newConfirmModel(title, message string, danger bool) confirmModel {
	focus := focusConfirm
	if danger {
		focus = focusCancel
	}
	return confirmModel{title: title, message: message, danger: danger, focus: focus}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer, m.done = true, true
		return m, tea.Quit
	case "n", "N", "esc", "ctrl+c", "q":
		m.answer, m.done = false, true
		return m, tea.Quit
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.focus == focusConfirm {
			m.focus = focusCancel
		} else {
			m.focus = focusConfirm
		}
	case "enter":
		m.answer, m.done = m.focus == focusConfirm, true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	label := "OK"
	if m.danger {
		label = styleDanger.Render("Delete")
	}
	ok := styleButton.Render(label)
	cancel := styleButton.Render("Cancel")
	if m.focus == focusConfirm {
		ok = styleButtonActive.Render(label)
	} else {
		cancel = styleButtonActive.Render("Cancel")
	}

	body := []string{styleTitle.Render(m.title)}
	if m.message != "" {
		body = append(body, "", m.message)
	}
	body = append(body, "",
		lipgloss.JoinHorizontal(lipgloss.Top, cancel, " ", ok),
		"",
		styleMuted.Render("y/n   tab: focus   enter: select   esc: cancel"),
	)
	return styleBox.Render(strings.Join(body, "\n")) + "\n"
}

type promptModel struct {
	title  string
	input  textinput.Model
	secret bool
	err    string
	value  string
	done   bool
}

func newPromptModel(title, defaultValue string) promptModel {
	ti := textinput.New()
	ti.SetValue(defaultValue)
	ti.CharLimit = 256
	ti.Width = 40
	ti.Focus()
	return promptModel{title: title, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			if !m.secret {
				v = strings.TrimSpace(v)
			}
			if strings.TrimSpace(v) == "" {
				m.err = MessageValueRequired
				return m, nil
			}
			m.value, m.done = v, true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if _, ok := msg.(tea.KeyMsg); ok {
		m.err = ""
	}
	return m, cmd
}

func (m promptModel) View() string {
	if m.done {
		return ""
	}
	body := []string{styleTitle.Render(m.title), "", m.input.View()}
	if m.err != "" {
		body = append(body, "", styleToastErr.Render(m.err))
	}
	body = append(body, "", styleMuted.Render("enter: save   esc: cancel"))
	return styleBox.Render(strings.Join(body, "\n")) + "\n"
}
