package models

import (
	"fmt"
	"strings"
	"time"
)

// StepKind enumerates the closed set of workflow transformations.
type StepKind string

const (
	StepCompress       StepKind = "compress"
	StepTextWatermark  StepKind = "textWatermark"
	StepAddPageNumbers StepKind = "addPageNumbers"
	StepEncrypt        StepKind = "encrypt"
	StepDecrypt        StepKind = "decrypt"
	StepRotate         StepKind = "rotate"
	StepExportImages   StepKind = "exportImages"
)

// NumberPosition is one of the six page number anchors.
type NumberPosition string

const (
	TopLeft      NumberPosition = "topLeft"
	TopCenter    NumberPosition = "topCenter"
	TopRight     NumberPosition = "topRight"
	BottomLeft   NumberPosition = "bottomLeft"
	BottomCenter NumberPosition = "bottomCenter"
	BottomRight  NumberPosition = "bottomRight"
)

// Valid reports whether p is one of the six anchors.
func (p NumberPosition) Valid() bool {
	switch p {
	case TopLeft, TopCenter, TopRight, BottomLeft, BottomCenter, BottomRight:
		return true
	}
	return false
}

// Step is a single workflow transformation. Only the parameters belonging to
// Kind are meaningful; the rest stay at their zero value.
type Step struct {
	Kind StepKind `json:"kind"`

	// textWatermark
	Text string   `json:"text,omitempty"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`

	// addPageNumbers. FirstPage and LastPage are 1-based and inclusive; zero means unbounded.
	Format    string         `json:"format,omitempty"`
	Position  NumberPosition `json:"position,omitempty"`
	FirstPage int            `json:"firstPage,omitempty"`
	LastPage  int            `json:"lastPage,omitempty"`

	// encrypt / decrypt
	UserPassword  *string `json:"userPassword,omitempty"`
	OwnerPassword *string `json:"ownerPassword,omitempty"`
	Password      *string `json:"password,omitempty"`

	// rotate
	Degrees int `json:"degrees,omitempty"`

	// exportImages
	Scale float64 `json:"scale,omitempty"`
}

func Compress() Step { return Step{Kind: StepCompress} }

func TextWatermark(text string) Step { return Step{Kind: StepTextWatermark, Text: text} }

func AddPageNumbers(format string, position NumberPosition) Step {
	return Step{Kind: StepAddPageNumbers, Format: format, Position: position}
}

func Encrypt(user, owner *string) Step {
	return Step{Kind: StepEncrypt, UserPassword: user, OwnerPassword: owner}
}

func Decrypt(password *string) Step { return Step{Kind: StepDecrypt, Password: password} }

func Rotate(degrees int) Step { return Step{Kind: StepRotate, Degrees: degrees} }

func ExportImages(scale float64) Step { return Step{Kind: StepExportImages, Scale: scale} }

// Validate checks the parameters of s without touching any resource.
// Defaults (format "%d", bottomCenter) are applied by the engine, not here.
func (s Step) Validate() error {
	switch s.Kind {
	case StepCompress, StepDecrypt:
		return nil
	case StepTextWatermark:
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("%w: watermark text is empty", ErrInvalidStep)
		}
	case StepAddPageNumbers:
		verbs := strings.ReplaceAll(s.Format, "%%", "")
		if s.Format != "" && (strings.Count(verbs, "%") != 1 || !strings.Contains(verbs, "%d")) {
			return fmt.Errorf("%w: page number format %q must contain exactly one %%d", ErrInvalidStep, s.Format)
		}
		if s.Position != "" && !s.Position.Valid() {
			return fmt.Errorf("%w: unknown page number position %q", ErrInvalidStep, s.Position)
		}
		if s.FirstPage < 0 || s.LastPage < 0 || (s.LastPage > 0 && s.FirstPage > s.LastPage) {
			return fmt.Errorf("%w: invalid page range %d-%d", ErrInvalidStep, s.FirstPage, s.LastPage)
		}
	case StepEncrypt:
		if empty(s.UserPassword) && empty(s.OwnerPassword) {
			return fmt.Errorf("%w: encrypt requires a user or owner password", ErrInvalidStep)
		}
	case StepRotate:
		if s.Degrees%90 != 0 {
			return fmt.Errorf("%w: rotation %d is not a multiple of 90", ErrInvalidStep, s.Degrees)
		}
	case StepExportImages:
		if s.Scale <= 0 {
			return fmt.Errorf("%w: export scale must be positive, got %v", ErrInvalidStep, s.Scale)
		}
	default:
		return fmt.Errorf("%w: unknown step kind %q", ErrInvalidStep, s.Kind)
	}
	return nil
}

func empty(p *string) bool { return p == nil || *p == "" }

// Workflow is a named, ordered list of steps. Order is execution order.
type Workflow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// QuickFlow is the default one-click workflow: compress, watermark, number,
// then encrypt with the caller's credentials.
func QuickFlow(id string, user, owner *string) Workflow {
	return Workflow{
		ID:   id,
		Name: "Quick Flow",
		Steps: []Step{
			Compress(),
			TextWatermark("CONFIDENTIAL"),
			AddPageNumbers("%d", BottomCenter),
			Encrypt(user, owner),
		},
	}
}

// OutcomeStatus is the result of one step.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// StepOutcome is one ledger entry.
type StepOutcome struct {
	Index  int           `json:"index"`
	Step   Step          `json:"step"`
	Status OutcomeStatus `json:"status"`
	Kind   FailureKind   `json:"failureKind,omitempty"`
	Reason string        `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`

	// Outputs lists files written next to the document, such as exported images.
	Outputs []string `json:"outputs,omitempty"`
}

// WorkflowResult is the ledger of a single workflow run.
type WorkflowResult struct {
	WorkflowID     string        `json:"workflowId"`
	Ledger         []StepOutcome `json:"ledger"`
	OverallSuccess bool          `json:"overallSuccess"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
}

// Failures returns the ledger entries that did not succeed.
func (r WorkflowResult) Failures() []StepOutcome {
	var out []StepOutcome
	for _, o := range r.Ledger {
		if o.Status != OutcomeSuccess {
			out = append(out, o)
		}
	}
	return out
}
