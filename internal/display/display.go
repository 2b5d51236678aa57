// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type manages a persistent narration status bar and an input
// prompt at the bottom of the terminal. All application output is
// printed above the rendered area via Program.Println,
// ensuring concurrent writes never garble the display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/ottoread/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	micOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// ── Output styles (soft palette) ──

	// BannerStyle is muted slate for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// Chat: soft sky blue for narrator lines.
	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	// Segment: soft mint for narration part headers.
	segmentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	// Primary text: light zinc for narration text.
	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	// Secondary text: dimmed zinc for hints and metadata.
	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	// Urgent: soft coral for errors and alerts.
	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

// StatusSource returns the latest narrator status.
type StatusSource func() domain.Status

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking).  Other goroutines may
// safely call [UI.Println] and read from
// [UI.InputChan] at any time after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	status  StatusSource
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(status StatusSource) *UI {
	return &UI{
		status:  status,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
	}
}

// Println prints a line above the prompt. Before Run starts, or after it
// returns, it writes straight to stdout.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────
// These give output visual hierarchy with lipgloss colors.

// PrintChat prints a conversational assistant line.
func (u *UI) PrintChat(text string) {
	u.Println(chatStyle.Render("  " + text))
}

// PrintNarration prints a narrated recipe part.
func (u *UI) PrintNarration(text string) {
	u.Println(segmentStyle.Render("  » ") + primaryStyle.Render(text))
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an urgent/error line (red, bold).
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintVoice prints a voice-recognised input line.
func (u *UI) PrintVoice(text string) {
	u.Println(secondaryStyle.Render("[voice] ") + primaryStyle.Render(text))
}

// PrintUserInput echoes the user's typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("read") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// Run starts the Bubble Tea event loop.  Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// Use a plain-text prompt so the textinput width math stays correct.
	// Lipgloss-styled prompts add invisible ANSI bytes that break the
	// internal offset/scroll calculations for long input.
	ti.Prompt = "read> "
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60 // updated on first WindowSizeMsg

	m := model{
		status:  u.status,
		input:   ti,
		inputCh: u.inputCh,
		readyCh: u.readyCh,
		echoFn: func(v string) {
			u.PrintUserInput(v)
		},
	}

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	status  StatusSource
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string) // prints user input into scrollback
	current domain.Status
	width   int
}

// Messages.
type tickMsg time.Time

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				// Return a Cmd that prints the echo; this runs
				// outside Update so it won't deadlock on msgs.
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		// Let the text input use the full width minus the prompt ("read> " = 6 chars).
		const promptLen = 6
		if msg.Width > promptLen {
			m.input.Width = msg.Width - promptLen
		}
		return m, nil

	case tickMsg:
		if m.status != nil {
			m.current = m.status()
		}
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(titleFor(m.current)))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(renderBar(m.current, m.width))
	b.WriteByte('\n')

	// Blank line before prompt for visual separation.
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

// ── Status rendering ─────────────────────────────────────────────

// titleFor builds the terminal window title.
func titleFor(st domain.Status) string {
	if st.RecipeName == "" {
		return "OttoRead"
	}
	if st.Total == 0 || st.Player == domain.PlayerIdle {
		return "OttoRead | " + st.RecipeName
	}
	return fmt.Sprintf("OttoRead | %s %d/%d", st.RecipeName, st.Cursor+1, st.Total)
}

// renderBar draws the status bar: recipe, position, player, mic, speed
// and voice.
func renderBar(st domain.Status, width int) string {
	var parts []string

	if st.RecipeName != "" {
		recipe := valueStyle.Render(st.RecipeName)
		if len(st.Categories) > 0 {
			recipe += labelStyle.Render(" (" + strings.Join(st.Categories, ", ") + ")")
		}
		parts = append(parts, recipe)
	} else {
		parts = append(parts, idleStyle.Render("no recipe"))
	}

	if st.Total > 0 && st.Player != domain.PlayerIdle {
		parts = append(parts, labelStyle.Render("part ")+valueStyle.Render(fmt.Sprintf("%d/%d", st.Cursor+1, st.Total)))
	}
	parts = append(parts, labelStyle.Render(playerLabel(st.Player)))
	parts = append(parts, micLabel(st))
	parts = append(parts, labelStyle.Render("speed ")+valueStyle.Render(fmt.Sprintf("%.1f", st.Rate)))

	voice := st.Voice
	if voice == "" {
		voice = "default voice"
	}
	parts = append(parts, labelStyle.Render(voice))

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

func playerLabel(s domain.PlayerState) string {
	switch s {
	case domain.PlayerSpeakingSegment:
		return "reading"
	case domain.PlayerSpeakingPrompt:
		return "prompting"
	case domain.PlayerAwaitingCommand:
		return "waiting for you"
	default:
		return "stopped"
	}
}

func micLabel(st domain.Status) string {
	if !st.VoiceInput {
		return micOffStyle.Render("mic off")
	}
	switch st.Recognition {
	case domain.RecognitionListening:
		return valueStyle.Render("listening")
	case domain.RecognitionRecovering:
		return idleStyle.Render("mic recovering")
	default:
		return idleStyle.Render("mic idle")
	}
}
