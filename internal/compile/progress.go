// Package compile folds template compile stream events into a progress snapshot.
package compile

import (
	"errors"

	"github.com/ternarybob/docsmith/internal/models"
)

// Steps is the order in which the backend runs a template compile
var Steps = []string{
	"resolveTemplate",
	"loadTemplate",
	"extractPlaceholders",
	"analyzeStructure",
	"generateCode",
	"validateCode",
	"writeGenerator",
}

// MaxLogLines bounds the retained log tail
const MaxLogLines = 200

// ErrCompileFailed is wrapped by errors returned for a failed compile
var ErrCompileFailed = errors.New("compile failed")

// StepStatus is the state of one compile step
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "start"
	StepOK      StepStatus = "ok"
	StepError   StepStatus = "error"
)

// StepState is one row of the progress display
type StepState struct {
	Name    string     `json:"name" yaml:"name"`
	Status  StepStatus `json:"status" yaml:"status"`
	Message string     `json:"message,omitempty" yaml:"message,omitempty"`
}

// Progress is the accumulated state of a compile stream
type Progress struct {
	Slug    string      `json:"slug" yaml:"slug"`
	Steps   []StepState `json:"steps" yaml:"steps"`
	Current string      `json:"current,omitempty" yaml:"current,omitempty"`
	Percent int         `json:"percent" yaml:"percent"`
	Logs    []string    `json:"logs,omitempty" yaml:"logs,omitempty"`
	Done    bool        `json:"done" yaml:"done"`
	Failed  bool        `json:"failed" yaml:"failed"`
	Error   string      `json:"error,omitempty" yaml:"error,omitempty"`
	File    string      `json:"file,omitempty" yaml:"file,omitempty"`
}

// NewProgress returns a progress with every known step pending
func NewProgress(slug string) *Progress {
	p := &Progress{Slug: slug}
	for _, name := range Steps {
		p.Steps = append(p.Steps, StepState{Name: name, Status: StepPending})
	}
	return p
}

// Finished reports whether a terminal event was applied
func (p *Progress) Finished() bool {
	return p.Done || p.Failed
}

// Apply folds one event into the progress. Events after a terminal event are ignored.
func (p *Progress) Apply(event models.StreamEvent) {
	if p.Finished() {
		return
	}

	switch e := event.(type) {
	case models.StepEvent:
		p.applyStep(e)

	case models.LogEvent:
		p.appendLog(e.Message)

	case models.DoneEvent:
		if !e.OK {
			p.fail(e.Message)
			return
		}
		p.Done = true
		p.Percent = 100
		p.Current = ""
		p.File = e.File

	case models.ErrorEvent:
		p.fail(e.Error)
	}
}

func (p *Progress) applyStep(e models.StepEvent) {
	state := p.step(e.Name)
	state.Status = StepStatus(e.Status)
	if e.Message != "" {
		state.Message = e.Message
	}

	if state.Status == StepRunning {
		p.Current = e.Name
	} else if p.Current == e.Name {
		p.Current = ""
	}

	if e.Progress != nil {
		p.Percent = models.ClampPercent(*e.Progress)
	} else {
		p.Percent = p.derivedPercent()
	}

	if state.Status == StepError {
		message := e.Message
		if message == "" {
			message = e.Name + " failed"
		}
		p.appendLog(message)
	}
}

// step returns the state for name, appending unknown steps at the end
func (p *Progress) step(name string) *StepState {
	for i := range p.Steps {
		if p.Steps[i].Name == name {
			return &p.Steps[i]
		}
	}
	p.Steps = append(p.Steps, StepState{Name: name, Status: StepPending})
	return &p.Steps[len(p.Steps)-1]
}

func (p *Progress) derivedPercent() int {
	completed := 0
	for _, state := range p.Steps {
		if state.Status == StepOK && isKnownStep(state.Name) {
			completed++
		}
	}
	return models.ClampPercent(float64(completed*100) / float64(len(Steps)))
}

func isKnownStep(name string) bool {
	for _, known := range Steps {
		if known == name {
			return true
		}
	}
	return false
}

func (p *Progress) fail(message string) {
	p.Failed = true
	p.Error = message
	p.Current = ""
	if message != "" {
		p.appendLog(message)
	}
}

func (p *Progress) appendLog(line string) {
	if line == "" {
		return
	}
	p.Logs = append(p.Logs, line)
	if len(p.Logs) > MaxLogLines {
		p.Logs = p.Logs[len(p.Logs)-MaxLogLines:]
	}
}

// Snapshot returns a deep copy safe to hand to another goroutine
func (p *Progress) Snapshot() Progress {
	snapshot := *p
	snapshot.Steps = append([]StepState(nil), p.Steps...)
	snapshot.Logs = append([]string(nil), p.Logs...)
	return snapshot
}
