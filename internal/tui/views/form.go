package views

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/participium/civimap/internal/model"
	"github.com/participium/civimap/internal/tui/styles"
)

// Form field indices
const (
	formFieldTitle = iota
	formFieldDescription
	formFieldCategory
	formFieldCount
)

type formOutcome int

const (
	formOutcomeNone formOutcome = iota
	formOutcomeCancel
	formOutcomeSubmit
	formOutcomePickPhoto
)

// ReportFormModel is the report-creation form revealed after a valid
// location pick. It owns the photo list and mirrors the address lookup
// state for display; the selection itself belongs to the map shell.
type ReportFormModel struct {
	inputs   []textinput.Model
	focused  int
	location model.GeoPoint
	photos   []string

	address        string
	addressPending bool

	err        string
	submitting bool
	outcome    formOutcome
}

func NewReportFormModel(location model.GeoPoint) ReportFormModel {
	inputs := make([]textinput.Model, formFieldCount)
	inputs[formFieldTitle] = newFormInput("short summary", 60)
	inputs[formFieldDescription] = newFormInput("what is the problem?", 200)
	inputs[formFieldCategory] = newFormInput("category id", 6)
	inputs[formFieldTitle].Focus()

	return ReportFormModel{
		inputs:   inputs,
		location: location,
	}
}

func newFormInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 30
	return ti
}

// SetAddress mirrors the async lookup state into the form.
func (f *ReportFormModel) SetAddress(address string, pending bool) {
	f.address = address
	f.addressPending = pending
}

func (f *ReportFormModel) AddPhoto(path string) {
	for _, p := range f.photos {
		if p == path {
			return
		}
	}
	f.photos = append(f.photos, path)
}

// Payload builds the submit payload from the form fields. The map shell
// fills in the confirmed location and resolved address.
func (f ReportFormModel) Payload() model.NewReport {
	categoryID, _ := strconv.Atoi(strings.TrimSpace(f.inputs[formFieldCategory].Value()))
	return model.NewReport{
		Title:       strings.TrimSpace(f.inputs[formFieldTitle].Value()),
		Description: strings.TrimSpace(f.inputs[formFieldDescription].Value()),
		CategoryID:  categoryID,
		PhotoPaths:  f.photos,
	}
}

func (f ReportFormModel) validate() string {
	if strings.TrimSpace(f.inputs[formFieldTitle].Value()) == "" {
		return "Title is required"
	}
	if v := strings.TrimSpace(f.inputs[formFieldCategory].Value()); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return "Category must be a numeric id"
		}
	}
	return ""
}

func (f ReportFormModel) Update(msg tea.KeyMsg) (ReportFormModel, tea.Cmd) {
	if f.submitting {
		return f, nil
	}

	switch msg.String() {
	case "esc":
		f.outcome = formOutcomeCancel
		return f, nil
	case "tab", "down":
		f.focusField((f.focused + 1) % formFieldCount)
		return f, textinput.Blink
	case "shift+tab", "up":
		f.focusField((f.focused + formFieldCount - 1) % formFieldCount)
		return f, textinput.Blink
	case "ctrl+p":
		f.outcome = formOutcomePickPhoto
		return f, nil
	case "ctrl+s", "enter":
		if msg.String() == "enter" && f.focused != formFieldCategory {
			f.focusField((f.focused + 1) % formFieldCount)
			return f, textinput.Blink
		}
		if errText := f.validate(); errText != "" {
			f.err = errText
			return f, nil
		}
		f.err = ""
		f.outcome = formOutcomeSubmit
		return f, nil
	}

	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return f, cmd
}

func (f *ReportFormModel) focusField(idx int) {
	f.inputs[f.focused].Blur()
	f.focused = idx
	f.inputs[f.focused].Focus()
}

func (f ReportFormModel) View(w int) string {
	var sb strings.Builder

	sb.WriteString(styles.Subtitle.Render("New report"))
	sb.WriteString("\n\n")

	sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render("Location  "))
	sb.WriteString(fmt.Sprintf("%.6f, %.6f", f.location.Lat, f.location.Lng))
	sb.WriteString("\n")

	sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render("Address   "))
	switch {
	case f.addressPending:
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).Render("looking up…"))
	case f.address == "":
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(addressNotAvailable))
	default:
		sb.WriteString(truncate(f.address, w-12))
	}
	sb.WriteString("\n\n")

	labels := [formFieldCount]string{"Title", "Description", "Category"}
	for i, ti := range f.inputs {
		style := styles.InactiveItem
		if i == f.focused {
			style = styles.ActiveItem
		}
		sb.WriteString(style.Render(labels[i]))
		sb.WriteString("\n")
		sb.WriteString(ti.View())
		sb.WriteString("\n")
	}

	if len(f.photos) > 0 {
		sb.WriteString("\n")
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render("Photos"))
		sb.WriteString("\n")
		for _, p := range f.photos {
			sb.WriteString("  " + truncate(filepath.Base(p), w-4) + "\n")
		}
	}

	if f.submitting {
		sb.WriteString("\n")
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).Render("Submitting…"))
	}
	if f.err != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.ErrorText.Render(f.err))
	}

	return sb.String()
}
