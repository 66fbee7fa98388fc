// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of a single target-total search.
type Summary struct {
	Field      string   `json:"field"`
	Original   string   `json:"original"`
	Value      string   `json:"value"`
	Target     string   `json:"target"`
	FinalTotal string   `json:"finalTotal"`
	Headroom   string   `json:"headroom"`
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
	Notes      []string `json:"notes,omitempty"`
}
