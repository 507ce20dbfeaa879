package checks

import "time"

// Kind is the outcome of a check run.
type Kind string

const (
	KindSuccess               Kind = "success"
	KindMissingFile           Kind = "missing_file"
	KindParseError            Kind = "parse_error"
	KindMissingRequiredField  Kind = "missing_required_field"
	KindSchemaValidationError Kind = "schema_validation_error"
	KindBuildError            Kind = "build_error"
	KindServeError            Kind = "serve_error"
)

// ExitCode maps the outcome to a process exit status.
func (k Kind) ExitCode() int {
	if k == KindSuccess {
		return 0
	}
	return 1
}

// StageName identifies one step of the pipeline.
type StageName string

const (
	StageExists StageName = "exists"
	StageParse  StageName = "parse"
	StageLoad   StageName = "load"
	StageBuild  StageName = "build"
	StageServe  StageName = "serve"
)

// Stages lists every stage in the order they run.
var Stages = []StageName{StageExists, StageParse, StageLoad, StageBuild, StageServe}

// Stage descriptions used in diagnostics.
const (
	DescMissingFile   = "Config file not found"
	DescParse         = "Error loading YAML"
	DescMissingField  = "Missing site_name field"
	DescConfiguration = "Error in configuration file"
	DescBuild         = "Error building the documentation"
	DescServe         = "Error starting the server"
)

// StageStatus is the outcome of a single stage.
type StageStatus string

const (
	StatusPassed  StageStatus = "passed"
	StatusWarning StageStatus = "warning"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// StageRecord is the timing and status of one stage.
type StageRecord struct {
	Name     StageName     `json:"name"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"duration_ns"`
}

// Result is the outcome of one check run.
type Result struct {
	Kind Kind
	// Path is the configuration file that was checked.
	Path string
	// Stage describes the failing stage, empty on success.
	Stage string
	// Message is the full diagnostic for a failure, including the stack block.
	Message string
	// Err is the error that failed the run.
	Err error
	// Warnings holds advisory messages that did not fail the run.
	Warnings []string
	Stages   []StageRecord
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool { return r.Kind == KindSuccess }

// ExitCode is the process exit status for the result.
func (r *Result) ExitCode() int { return r.Kind.ExitCode() }

// StageStatus returns the recorded status of name, or StatusSkipped when the
// stage never ran.
func (r *Result) StageStatus(name StageName) StageStatus {
	for _, s := range r.Stages {
		if s.Name == name {
			return s.Status
		}
	}
	return StatusSkipped
}

func (r *Result) record(name StageName, status StageStatus, d time.Duration) {
	r.Stages = append(r.Stages, StageRecord{Name: name, Status: status, Duration: d})
}

func (r *Result) setLastStatus(status StageStatus) {
	if n := len(r.Stages); n > 0 {
		r.Stages[n-1].Status = status
	}
}

// skipRemaining records every stage that has not run as skipped.
func (r *Result) skipRemaining() {
	seen := make(map[StageName]bool, len(r.Stages))
	for _, s := range r.Stages {
		seen[s.Name] = true
	}
	for _, name := range Stages {
		if !seen[name] {
			r.record(name, StatusSkipped, 0)
		}
	}
}
