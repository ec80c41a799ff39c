// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"nickandperla.net/calcnb/internal/notebook"
	"nickandperla.net/calcnb/pkg/calcnb"
)

var (
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// resultsMsg is sent by the session when a pass changed the markers.
type resultsMsg calcnb.Update

// editor is a minimal line editor over a session. Results are drawn from
// the session's markers, so they follow edits before the next pass runs.
type editor struct {
	sess   *calcnb.Session
	row    int
	col    int // in runes
	top    int
	width  int
	height int
	status string
}

func runTUI(sess *calcnb.Session) error {
	m := &editor{sess: sess, width: 80, height: 24}
	p := tea.NewProgram(m, tea.WithAltScreen())
	// Passes run from Update on ctrl+s, so Send must not block the loop.
	sess.SetOnResults(func(u calcnb.Update) { go p.Send(resultsMsg(u)) })
	defer sess.SetOnResults(nil)
	_, err := p.Run()
	return err
}

func (m *editor) Init() tea.Cmd {
	return nil
}

func (m *editor) lines() []notebook.Line {
	return notebook.Split(m.sess.Text())
}

// offset converts the cursor to a byte offset in the document.
func (m *editor) offset(lines []notebook.Line) int {
	l := lines[m.row]
	runes := []rune(l.Text)
	return l.Start + len(string(runes[:m.col]))
}

func (m *editor) clamp(lines []notebook.Line) {
	if m.row >= len(lines) {
		m.row = len(lines) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
	if n := len([]rune(lines[m.row].Text)); m.col > n {
		m.col = n
	}
	if m.col < 0 {
		m.col = 0
	}
	if m.row < m.top {
		m.top = m.row
	}
	if rows := m.height - 1; rows > 0 && m.row >= m.top+rows {
		m.top = m.row - rows + 1
	}
}

func (m *editor) replace(from, to int, text string) {
	if err := m.sess.Replace(from, to, text); err != nil {
		m.status = err.Error()
	}
}

func (m *editor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case resultsMsg:
		m.status = calcnb.Update(msg).Stats.String()
		if err := m.sess.Err(); err != nil {
			m.status = "save failed: " + err.Error()
		}
	case tea.KeyMsg:
		if quit := m.key(msg); quit {
			return m, tea.Quit
		}
	}
	m.clamp(m.lines())
	return m, nil
}

func (m *editor) key(msg tea.KeyMsg) bool {
	lines := m.lines()
	m.clamp(lines)
	off := m.offset(lines)
	cur := []rune(lines[m.row].Text)

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return true
	case tea.KeyCtrlS:
		m.sess.Flush()
	case tea.KeyRunes, tea.KeySpace:
		s := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			s = " "
		}
		m.replace(off, off, s)
		m.col += len([]rune(s))
	case tea.KeyTab:
		m.replace(off, off, "  ")
		m.col += 2
	case tea.KeyEnter:
		m.replace(off, off, "\n")
		m.row++
		m.col = 0
	case tea.KeyBackspace:
		switch {
		case m.col > 0:
			width := len(string(cur[m.col-1]))
			m.replace(off-width, off, "")
			m.col--
		case m.row > 0:
			m.row--
			m.col = len([]rune(lines[m.row].Text))
			m.replace(off-1, off, "")
		}
	case tea.KeyDelete:
		switch {
		case m.col < len(cur):
			m.replace(off, off+len(string(cur[m.col])), "")
		case m.row < len(lines)-1:
			m.replace(off, off+1, "")
		}
	case tea.KeyLeft:
		if m.col > 0 {
			m.col--
		} else if m.row > 0 {
			m.row--
			m.col = len([]rune(lines[m.row].Text))
		}
	case tea.KeyRight:
		if m.col < len(cur) {
			m.col++
		} else if m.row < len(lines)-1 {
			m.row++
			m.col = 0
		}
	case tea.KeyUp:
		m.row--
	case tea.KeyDown:
		m.row++
	case tea.KeyHome, tea.KeyCtrlA:
		m.col = 0
	case tea.KeyEnd, tea.KeyCtrlE:
		m.col = len(cur)
	}
	return false
}

func (m *editor) View() string {
	lines := m.lines()
	m.clamp(lines)

	display := map[int]*calcnb.Result{}
	for _, mk := range m.sess.Markers() {
		l, ok := notebook.LineAt(lines, mk.Offset)
		if !ok {
			continue
		}
		r := &calcnb.Result{Text: mk.Text}
		if mk.Failed {
			r.Failure = &notebook.Failure{Kind: notebook.EvaluationFailure, Err: errors.New(mk.Text)}
		}
		display[l.Index] = r
	}
	rows := make([]annotated, len(lines))
	for i, l := range lines {
		rows[i] = annotated{Line: l, Result: display[i]}
	}
	col := resultColumn(rows, m.width)

	var b strings.Builder
	visible := m.height - 1
	if visible < 1 {
		visible = len(rows)
	}
	for i := m.top; i < len(rows) && i < m.top+visible; i++ {
		text := rows[i].Line.Text
		b.WriteString(m.renderLine(i, text))
		if mk := marker(rows[i].Result, true); mk != "" {
			pad := col - runewidth.StringWidth(text)
			if i == m.row && m.col == len([]rune(text)) {
				pad--
			}
			if pad < gutter {
				pad = gutter
			}
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(mk)
		}
		b.WriteByte('\n')
	}
	status := m.status
	if status == "" {
		status = "ctrl+s evaluate now · esc quit"
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("%d:%d  %s", m.row+1, m.col+1, status)))
	return b.String()
}

func (m *editor) renderLine(i int, text string) string {
	if i != m.row {
		return text
	}
	runes := []rune(text)
	if m.col >= len(runes) {
		return text + cursorStyle.Render(" ")
	}
	return string(runes[:m.col]) + cursorStyle.Render(string(runes[m.col])) + string(runes[m.col+1:])
}
