package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/participium/civimap/internal/tui/styles"
)

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// PhotoPickerModel browses the filesystem for photos to attach to a
// report draft.
type PhotoPickerModel struct {
	dir    string
	files  []os.DirEntry
	cursor int
	err    error
}

// PhotoPicked carries a chosen photo path back to the report form.
type PhotoPicked struct {
	Path string
}

// NavigateToPhotoPicker asks the app to open the photo picker.
type NavigateToPhotoPicker struct{}

func NewPhotoPickerModel() PhotoPickerModel {
	cwd, _ := os.Getwd()
	m := PhotoPickerModel{dir: cwd}
	m.loadDir()
	return m
}

func (m *PhotoPickerModel) loadDir() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.err = err
		return
	}

	m.files = nil
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() || photoExtensions[strings.ToLower(filepath.Ext(name))] {
			m.files = append(m.files, e)
		}
	}
	m.cursor = 0
}

func (m PhotoPickerModel) Init() tea.Cmd {
	return nil
}

func (m PhotoPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.files)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.files) {
				entry := m.files[m.cursor]
				fullPath := filepath.Join(m.dir, entry.Name())
				if entry.IsDir() {
					m.dir = fullPath
					m.loadDir()
					return m, nil
				}
				return m, func() tea.Msg {
					return PhotoPicked{Path: fullPath}
				}
			}
		case "backspace":
			parent := filepath.Dir(m.dir)
			if parent != m.dir {
				m.dir = parent
				m.loadDir()
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToMap{} }
		}
	}
	return m, nil
}

func (m PhotoPickerModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Attach Photo"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(m.dir))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		return styles.Border.Render(b.String())
	}

	if len(m.files) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No photos or directories found"))
	}

	// Show max 15 items
	start := 0
	if m.cursor > 12 {
		start = m.cursor - 12
	}
	end := start + 15
	if end > len(m.files) {
		end = len(m.files)
	}

	for i := start; i < end; i++ {
		entry := m.files[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		icon := "🖼 "
		if entry.IsDir() {
			icon = "📁 "
		}

		style := styles.InactiveItem
		if i == m.cursor {
			style = styles.ActiveItem
		}

		b.WriteString(fmt.Sprintf("%s%s%s\n", cursor, icon, style.Render(entry.Name())))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter attach • backspace parent dir • esc back to map"))

	return styles.Border.Render(b.String())
}
