package repl

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipedream/internal/config"
	"pipedream/internal/pipeline"
	"pipedream/internal/value"
)

type fakeSession struct {
	results map[string]pipeline.Data
	errs    map[string]error
	lines   []string
}

func (f *fakeSession) Evaluate(line string) (pipeline.Data, error) {
	f.lines = append(f.lines, line)
	if err, ok := f.errs[line]; ok {
		return nil, err
	}
	if d, ok := f.results[line]; ok {
		return d, nil
	}
	return pipeline.Empty{}, nil
}

func typeLine(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestModel_RendersResults(t *testing.T) {
	rec := func(k string, v any) value.Value {
		return value.MustRecord([]string{k}, []value.Value{value.Scalar(v)})
	}
	sess := &fakeSession{
		results: map[string]pipeline.Data{
			"1 + 2": pipeline.Value{V: value.Scalar(3)},
			"table": pipeline.FromValues(rec("name", "alpha"), rec("size", 7)),
			"!echo": pipeline.ByteStream{R: strings.NewReader("from shell")},
		},
		errs: map[string]error{"bad": errors.New("failed to parse command: expected operand")},
	}
	m := sized(New(config.DefaultConfig(), sess, nil, nil))

	assert.Contains(t, m.Body(), "Nothing")

	m = typeLine(t, m, "1 + 2")
	assert.Contains(t, m.Body(), "3")

	m = typeLine(t, m, "table")
	body := m.Body()
	for _, want := range []string{"name", "size", "alpha", "7"} {
		assert.Contains(t, body, want)
	}

	m = typeLine(t, m, "!echo")
	assert.Contains(t, m.Body(), "from shell")

	m = typeLine(t, m, "bad")
	assert.Contains(t, m.Body(), "Error: failed to parse command: expected operand")

	assert.Equal(t, []string{"1 + 2", "table", "!echo", "bad"}, sess.lines)
}

func TestModel_Commands(t *testing.T) {
	sess := &fakeSession{results: map[string]pipeline.Data{"42": pipeline.Value{V: value.Scalar(42)}}}
	m := sized(New(config.DefaultConfig(), sess, nil, nil))

	m = typeLine(t, m, ":help")
	assert.Contains(t, m.Body(), "pipedream")
	assert.Empty(t, sess.lines)

	m = typeLine(t, m, "42")
	assert.Contains(t, m.Body(), "42")

	m = typeLine(t, m, ":clear")
	assert.Contains(t, m.Body(), "Nothing")
	assert.Equal(t, "", m.input.Value())

	m.input.SetValue(":quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_InitError(t *testing.T) {
	m := New(config.DefaultConfig(), nil, errors.New("I/O error: environment variable \"X\" is not valid UTF-8"), nil)

	assert.Contains(t, m.View(), "Error initialising shell: I/O error")

	// the prompt stays disabled
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, next.View(), "Error initialising shell")
}

func TestModel_ConfigReload(t *testing.T) {
	updates := make(chan *config.Config, 1)
	m := sized(New(config.DefaultConfig(), &fakeSession{}, nil, updates))
	assert.True(t, m.styles.Theme.IsDark)

	cfg := config.DefaultConfig()
	cfg.UI.Theme = "light"
	cfg.UI.NothingPlaceholder = "(none)"
	updates <- cfg

	msg := m.waitForConfig()()
	next, cmd := m.Update(msg)
	m = next.(Model)

	assert.False(t, m.styles.Theme.IsDark)
	assert.Contains(t, m.Body(), "(none)")
	assert.NotNil(t, cmd)
}

func TestModel_Quit(t *testing.T) {
	m := New(config.DefaultConfig(), &fakeSession{}, nil, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
