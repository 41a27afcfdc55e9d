package harness

// StepResult records one flow invocation.
type StepResult struct {
	Invoke string `json:"invoke"`
	Args   []any  `json:"args,omitempty"`

	// Query is the canonical form of the derived query, nil when the
	// method failed to compile or bind.
	Query any `json:"query,omitempty"`

	// Result is the normalized invocation result. Entity shapes become
	// documents or lists of documents; a page becomes
	// {content, page, size, total}.
	Result any `json:"result,omitempty"`

	// Code and Error are set when the invocation failed.
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Errors contains validation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Compiles counts plan compilations during the run.
	Compiles int64 `json:"compiles"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
