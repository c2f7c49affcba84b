package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/participium/civimap/internal/tui/views"
)

type viewID int

const (
	viewHome viewID = iota
	viewMap
	viewReports
	viewPhotoPicker
)

// App is the root bubbletea model. The map view stays alive across
// navigation so selection and popup state survive a detour through the
// report table or photo picker.
type App struct {
	deps         *views.Deps
	municipality string
	serverURL    string

	currentView viewID
	width       int
	height      int

	home        views.HomeModel
	mapView     views.MapModel
	mapActive   bool
	reports     views.ReportsModel
	photoPicker views.PhotoPickerModel
}

func NewApp(deps *views.Deps, municipality, serverURL string) App {
	return App{
		deps:         deps,
		municipality: municipality,
		serverURL:    serverURL,
		currentView:  viewHome,
		home:         views.NewHomeModel(municipality, serverURL),
	}
}

func (a App) Init() tea.Cmd {
	return a.home.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case views.NavigateToHome:
		a.currentView = viewHome
		return a, nil

	case views.NavigateToMap:
		var cmd tea.Cmd
		if !a.mapActive {
			a.mapView = views.NewMapModel(a.deps)
			a.mapActive = true
			cmd = a.mapView.Init()
		}
		a.currentView = viewMap
		return a, tea.Batch(cmd, a.sizeCmd())

	case views.NavigateToReports:
		a.currentView = viewReports
		a.reports = views.NewReportsModel(a.deps)
		return a, tea.Batch(a.reports.Init(), a.sizeCmd())

	case views.NavigateToPhotoPicker:
		a.currentView = viewPhotoPicker
		a.photoPicker = views.NewPhotoPickerModel()
		return a, a.photoPicker.Init()

	case views.PhotoPicked:
		// Hand the chosen photo to the map's report form and come back.
		var cmd tea.Cmd
		if a.mapActive {
			var m tea.Model
			m, cmd = a.mapView.Update(msg)
			a.mapView = m.(views.MapModel)
		}
		a.currentView = viewMap
		return a, tea.Batch(cmd, a.sizeCmd())

	case views.OpenReportOnMap:
		var initCmd tea.Cmd
		if !a.mapActive {
			a.mapView = views.NewMapModel(a.deps)
			a.mapActive = true
			initCmd = a.mapView.Init()
		}
		m, cmd := a.mapView.Update(msg)
		a.mapView = m.(views.MapModel)
		a.currentView = viewMap
		return a, tea.Batch(initCmd, cmd, a.sizeCmd())
	}

	var cmd tea.Cmd
	switch a.currentView {
	case viewHome:
		var m tea.Model
		m, cmd = a.home.Update(msg)
		a.home = m.(views.HomeModel)
	case viewMap:
		var m tea.Model
		m, cmd = a.mapView.Update(msg)
		a.mapView = m.(views.MapModel)
	case viewReports:
		var m tea.Model
		m, cmd = a.reports.Update(msg)
		a.reports = m.(views.ReportsModel)
	case viewPhotoPicker:
		var m tea.Model
		m, cmd = a.photoPicker.Update(msg)
		a.photoPicker = m.(views.PhotoPickerModel)
	}

	return a, cmd
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewHome:
		content = a.home.View()
	case viewMap:
		content = a.mapView.View()
	case viewReports:
		content = a.reports.View()
	case viewPhotoPicker:
		content = a.photoPicker.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly shown views get the current
// terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run starts the TUI.
func Run(deps *views.Deps, municipality, serverURL string) error {
	p := tea.NewProgram(NewApp(deps, municipality, serverURL), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
