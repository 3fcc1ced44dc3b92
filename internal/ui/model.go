// Package ui provides the Bubbletea terminal user interface for applying a
// configuration to the running engine
package ui

import (
	"errors"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Stage names for the apply workflow, in the order they run
const (
	StageLoad    = "Load settings"
	StageCompile = "Compile configuration"
	StageWrite   = "Write configuration file"
	StageConnect = "Connect to engine"
	StageSend    = "Send configuration"
	StageRecord  = "Record applied version"
)

// ApplyStages is the default stage list for the apply command
var ApplyStages = []string{StageLoad, StageCompile, StageWrite, StageConnect, StageSend, StageRecord}

// StageStatus represents the state of a single stage
type StageStatus int

const (
	StatusPending StageStatus = iota
	StatusRunning
	StatusComplete
	StatusSkipped
	StatusError
)

// StageProgress tracks one stage of the workflow
type StageProgress struct {
	Name        string
	Status      StageStatus
	Detail      string
	StartTime   time.Time
	ElapsedTime time.Duration
	Error       error
}

// Model is the Bubbletea model for the apply UI
type Model struct {
	Title string

	Stages          []StageProgress
	CurrentIndex    int
	CompletedStages int
	SkippedStages   int
	FailedStages    int

	// Global state
	StartTime time.Time
	Done      bool
	Summary   string

	// Channel for receiving progress updates from the worker goroutine
	ProgressChan chan tea.Msg

	// Terminal dimensions
	Width  int
	Height int

	spinnerIndex int
	logger       *slog.Logger
}

// NewModel creates a new UI model for the named stages. A nil logger
// discards debug output.
func NewModel(title string, stages []string, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	progress := make([]StageProgress, len(stages))
	for i, name := range stages {
		progress[i] = StageProgress{Name: name, Status: StatusPending}
	}

	return Model{
		Title:        title,
		Stages:       progress,
		CurrentIndex: -1,
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 16),
		logger:       logger,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForProgress(m.ProgressChan), tickCmd())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.logger.Debug("window size", "width", m.Width, "height", m.Height)

	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
		if m.valid(m.CurrentIndex) && m.Stages[m.CurrentIndex].Status == StatusRunning {
			m.Stages[m.CurrentIndex].ElapsedTime = time.Since(m.Stages[m.CurrentIndex].StartTime)
		}
		return m, tickCmd()

	case StageStartMsg:
		m.logger.Debug("stage started", "index", msg.Index)
		if m.valid(msg.Index) {
			m.CurrentIndex = msg.Index
			m.Stages[msg.Index].Status = StatusRunning
			m.Stages[msg.Index].StartTime = time.Now()
		}
		return m, waitForProgress(m.ProgressChan)

	case StageCompleteMsg:
		m.logger.Debug("stage complete", "index", msg.Index, "error", msg.Error)
		if m.valid(msg.Index) {
			stage := &m.Stages[msg.Index]
			stage.Detail = msg.Detail
			stage.Error = msg.Error
			if !stage.StartTime.IsZero() {
				stage.ElapsedTime = time.Since(stage.StartTime)
			}
			if msg.Error != nil {
				stage.Status = StatusError
				m.FailedStages++
			} else {
				stage.Status = StatusComplete
				m.CompletedStages++
			}
		}
		return m, waitForProgress(m.ProgressChan)

	case StageSkippedMsg:
		m.logger.Debug("stage skipped", "index", msg.Index, "reason", msg.Reason)
		if m.valid(msg.Index) {
			m.Stages[msg.Index].Status = StatusSkipped
			m.Stages[msg.Index].Detail = msg.Reason
			m.SkippedStages++
		}
		return m, waitForProgress(m.ProgressChan)

	case AllCompleteMsg:
		m.logger.Debug("all stages complete")
		m.Done = true
		m.Summary = msg.Summary
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderApplyView(m)
}

// Err returns the errors of every failed stage, joined.
func (m Model) Err() error {
	var errs []error
	for _, s := range m.Stages {
		if s.Error != nil {
			errs = append(errs, s.Error)
		}
	}
	return errors.Join(errs...)
}

func (m Model) valid(index int) bool {
	return index >= 0 && index < len(m.Stages)
}

// waitForProgress creates a command that waits for progress messages
func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
