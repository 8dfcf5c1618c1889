package harness

// TraceEvent is one route of the reconstructed model, in model order.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Route   string `json:"route"`
	Message string `json:"message"`
	Type    string `json:"type"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Handlers lists handler keys in final model order.
	Handlers []string `json:"handlers"`

	// Endpoints lists endpoint names in first-touched order.
	Endpoints []string `json:"endpoints"`

	// Trace lists every route in model order.
	Trace []TraceEvent `json:"trace"`

	// Orphans counts roots whose parent was absent.
	Orphans int `json:"orphans"`

	// ErrorCode is set when the reconstruction was rejected.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Handlers:  []string{},
		Endpoints: []string{},
		Trace:     []TraceEvent{},
		Errors:    []string{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
