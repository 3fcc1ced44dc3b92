package ui

// StageStartMsg indicates a stage has started
type StageStartMsg struct {
	Index int
}

// StageCompleteMsg indicates a stage has finished. A non-nil Error marks
// the stage as failed.
type StageCompleteMsg struct {
	Index  int
	Detail string
	Error  error
}

// StageSkippedMsg indicates a stage was not needed for this run
type StageSkippedMsg struct {
	Index  int
	Reason string
}

// AllCompleteMsg indicates no further stages will run
type AllCompleteMsg struct {
	Summary string
}

// tickMsg advances the spinner
type tickMsg struct{}
