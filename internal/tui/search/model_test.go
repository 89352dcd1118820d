package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hazadus/go-nowplaying/internal/model"
)

// mockCatalog мок клиента каталога
type mockCatalog struct {
	query string
	tag   string
	top   bool
	err   error
}

func (c *mockCatalog) Search(ctx context.Context, query string) ([]model.Track, error) {
	c.query = query
	return c.result()
}

func (c *mockCatalog) TopTracks(ctx context.Context) ([]model.Track, error) {
	c.top = true
	return c.result()
}

func (c *mockCatalog) TracksByTag(ctx context.Context, tag string) ([]model.Track, error) {
	c.tag = tag
	return c.result()
}

func (c *mockCatalog) result() ([]model.Track, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []model.Track{model.NewRemote("1", "https://cdn.example.com/1.mp3", "Song", "Band")}, nil
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestSearchByName(t *testing.T) {
	catalog := &mockCatalog{}
	m := NewModel(catalog)

	typeText(m, "rock")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Expected search command")
	}
	if !m.loading {
		t.Error("Expected loading state")
	}

	msg, ok := cmd().(ResultMsg)
	if !ok {
		t.Fatal("Expected ResultMsg")
	}
	if catalog.query != "rock" || msg.Title != "Поиск: rock" || len(msg.Tracks) != 1 {
		t.Errorf("Unexpected result: %+v (query %q)", msg, catalog.query)
	}

	m.Update(msg)
	if m.loading {
		t.Error("Loading must end after result")
	}
}

func TestModes(t *testing.T) {
	catalog := &mockCatalog{}
	m := NewModel(catalog)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.mode != ByTag {
		t.Fatalf("Expected ByTag, got %v", m.mode)
	}
	typeText(m, "jazz")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	if catalog.tag != "jazz" {
		t.Errorf("Expected tag query, got %q", catalog.tag)
	}

	m.Reset()
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.mode != Top {
		t.Fatalf("Expected Top, got %v", m.mode)
	}
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Top must not require a query")
	}
	cmd()
	if !catalog.top {
		t.Error("Expected TopTracks call")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.mode != ByTag {
		t.Errorf("Expected ByTag after shift+tab, got %v", m.mode)
	}
}

func TestEmptyQuery(t *testing.T) {
	m := NewModel(&mockCatalog{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("Empty query must not run a search")
	}
	if !strings.Contains(m.View(), "Запрос не может быть пустым") {
		t.Error("Expected validation error in view")
	}
}

func TestSearchError(t *testing.T) {
	m := NewModel(&mockCatalog{err: errors.New("HTTP 500")})

	typeText(m, "x")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(cmd())

	if !strings.Contains(m.View(), "HTTP 500") {
		t.Error("Expected catalog error in view")
	}
}

func TestEscGoesBack(t *testing.T) {
	m := NewModel(&mockCatalog{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("Expected command for Esc")
	}
	if _, ok := cmd().(GoBackMsg); !ok {
		t.Error("Expected GoBackMsg")
	}
}
