package lifecycle

// Phase names, in execution order per direction.
const (
	PhasePreInstall    = "pre-install"
	PhasePackages      = "packages"
	PhaseFiles         = "files"
	PhasePostInstall   = "post-install"
	PhasePreUninstall  = "pre-uninstall"
	PhaseFileRemoval   = "file-removal"
	PhasePostUninstall = "post-uninstall"
)

// PhaseStatus is the outcome of a single phase.
type PhaseStatus string

const (
	PhaseOK      PhaseStatus = "ok"
	PhaseSkipped PhaseStatus = "skipped"
	PhaseFailed  PhaseStatus = "failed"
)

// Status is the aggregate outcome of one module lifecycle run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// PhaseResult records one phase of a run.
type PhaseResult struct {
	Phase   string
	Status  PhaseStatus
	Message string
}

// Result is the outcome of running a module's lifecycle. It is created fresh
// per module run and consumed immediately by the CLI layer; nothing persists
// it.
type Result struct {
	Module string
	Status Status
	Phases []PhaseResult
}

// Failed reports whether the run counts against the process exit code.
// Skips and partial (advisory-only) outcomes do not.
func (r *Result) Failed() bool { return r.Status == StatusFailed }

func (r *Result) addPhase(phase string, status PhaseStatus, message string) {
	r.Phases = append(r.Phases, PhaseResult{Phase: phase, Status: status, Message: message})
}

// finalize derives the aggregate status from the recorded phases: any
// advisory failure downgrades success to partial. A hard failure is set
// directly by the runner, as is skipped.
func (r *Result) finalize() {
	if r.Status != "" {
		return
	}
	r.Status = StatusSuccess
	for _, p := range r.Phases {
		if p.Status == PhaseFailed {
			r.Status = StatusPartial
			return
		}
	}
}
