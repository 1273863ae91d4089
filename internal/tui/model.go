package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdfrag/internal/domain"
	"pdfrag/internal/session"
)

// PassageRule separates retrieved passages in the similarity expander.
const PassageRule = "------------------------------"

// SessionPort is the TUI-facing subset of a session.
type SessionPort interface {
	IsReady() bool
	Stale() bool
	Build(ctx context.Context) (session.Report, error)
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

type buildDoneMsg struct {
	report session.Report
	err    error
}

type answerMsg struct {
	answer *domain.Answer
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	session  SessionPort
	title    string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	answer   *domain.Answer
	report   *session.Report
	status   string
	isError  bool
	busy     bool
	pending  string
	expanded bool
	ready    bool
}

// New creates a new TUI model bound to one session. ctx bounds every
// build and answer the model starts.
func New(ctx context.Context, s SessionPort, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return Model{
		ctx:      ctx,
		session:  s,
		title:    title,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Enter embeds the documents (first time) and fetches an answer. ctrl+b embeds only.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + qh + 1 // header, notice, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case buildDoneMsg:
		return m.onBuilt(msg)
	case answerMsg:
		return m.onAnswer(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.setStatus("Type a question first.", true)
				return m, nil
			}
			if !m.session.IsReady() {
				m.pending = q
				return m.startBuild()
			}
			return m.startAsk(q)
		case "ctrl+b":
			if m.session.IsReady() {
				m.setStatus("Vector store is ready.", false)
				return m, nil
			}
			m.pending = ""
			return m.startBuild()
		case "tab":
			m.expanded = !m.expanded
			m.refresh()
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startBuild() (tea.Model, tea.Cmd) {
	m.busy = true
	m.setStatus("Embedding documents...", false)
	return m, tea.Batch(m.spinner.Tick, m.buildCmd())
}

func (m Model) startAsk(q string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.setStatus("Fetching answer...", false)
	return m, tea.Batch(m.spinner.Tick, m.askCmd(q))
}

func (m Model) buildCmd() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		report, err := s.Build(ctx)
		return buildDoneMsg{report: report, err: err}
	}
}

func (m Model) askCmd(q string) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		ans, err := s.Ask(ctx, q)
		return answerMsg{answer: ans, err: err}
	}
}

func (m Model) onBuilt(msg buildDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.busy = false
		m.pending = ""
		m.setStatus("Error: "+msg.err.Error(), true)
		return m, nil
	}
	report := msg.report
	m.report = &report
	m.setStatus(fmt.Sprintf("Vector store is ready: %d documents, %d chunks (%.2fs).",
		report.Documents, report.Chunks, report.Elapsed.Seconds()), false)
	m.refresh()
	if m.pending == "" {
		m.busy = false
		return m, nil
	}
	q := m.pending
	m.pending = ""
	return m, m.askCmd(q)
}

func (m Model) onAnswer(msg answerMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.setStatus("Error: "+msg.err.Error(), true)
		return m, nil
	}
	m.answer = msg.answer
	m.setStatus(fmt.Sprintf("Response time: %.2f seconds", msg.answer.Elapsed.Seconds()), false)
	m.refresh()
	return m, nil
}

func (m *Model) setStatus(s string, isError bool) {
	m.status = s
	m.isError = isError
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.title)
	notice := ""
	if m.session.Stale() {
		notice = warnStyle.Render("Source documents changed since the index was built; restart to re-index.")
	}
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	if m.isError {
		status = errorStyle.Render(status)
	} else {
		status = statusStyle.Render(status)
	}
	body := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	return header + "\n" + notice + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	var b strings.Builder
	if m.report != nil && m.report.Summary != "" {
		b.WriteString(dimStyle.Render("Corpus: " + m.report.Summary))
		b.WriteString("\n\n")
	}
	if m.answer == nil {
		b.WriteString("No answer yet.")
		return b.String()
	}
	b.WriteString(m.answer.Text)
	b.WriteString("\n\n")
	if !m.expanded {
		fmt.Fprintf(&b, "▸ Document Similarity Search (%d passages, tab to expand)", len(m.answer.Context))
		return b.String()
	}
	b.WriteString("▾ Document Similarity Search")
	b.WriteString("\n\n")
	for _, r := range m.answer.Context {
		b.WriteString(dimStyle.Render(passageTitle(r)))
		b.WriteString("\n")
		b.WriteString(highlightBestSentence(r.Chunk.Text, m.answer.Question))
		b.WriteString("\n")
		b.WriteString(PassageRule)
		b.WriteString("\n")
	}
	return b.String()
}

func passageTitle(r domain.SearchResult) string {
	src := filepath.Base(r.Chunk.Source)
	if r.Chunk.Page > 0 {
		return fmt.Sprintf("%s p.%d  score=%.3f", src, r.Chunk.Page, r.Score)
	}
	return fmt.Sprintf("%s  score=%.3f", src, r.Score)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true).TabWidth(lipgloss.NoTabConversion)
	unicodeWordRe  = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)
	// A sentence ends at terminal punctuation followed by whitespace, so
	// decimals such as 331.4 stay whole.
	sentenceRe     = regexp.MustCompile(`(?s).+?(?:[.!?]+\s+|$)`)
)

// highlightBestSentence emphasises the sentence sharing the most words
// with the question. Every other byte of text is kept as is.
func highlightBestSentence(text, query string) string {
	qTokens := toTokenSet(query)
	if strings.TrimSpace(text) == "" || len(qTokens) == 0 {
		return text
	}
	var best []int
	bestScore := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if score := tokenOverlapScore(qTokens, text[loc[0]:loc[1]]); score > bestScore {
			best, bestScore = loc, score
		}
	}
	if best == nil {
		return text
	}
	start := best[0]
	end := start + len(strings.TrimRightFunc(text[start:best[1]], unicode.IsSpace))
	return text[:start] + highlightLines(text[start:end]) + text[end:]
}

// highlightLines styles each line on its own so multi-line spans are not
// padded into a block.
func highlightLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = highlightStyle.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
