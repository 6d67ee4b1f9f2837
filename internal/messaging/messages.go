// Package messaging carries macro storage requests, key relays and runs
// between the CLI and a long-running macroweb process over HTTP/JSON.
package messaging

// Message types accepted on POST /messages
const (
	TypeSaveMacro   = "saveMacro"
	TypeLoadMacros  = "loadMacros"
	TypeDeleteMacro = "deleteMacro"
	TypeRelayKey    = "relayKey"
)

// Message is a request on the message endpoint. Which fields are required
// depends on Type.
type Message struct {
	Type  string  `json:"type"`
	Name  *string `json:"name,omitempty"`
	Macro *string `json:"macro,omitempty"`
	Key   *string `json:"key,omitempty"`
}

// valid reports whether m carries the fields its type needs. Unknown types
// pass here and are rejected by dispatch.
func (m Message) valid() bool {
	switch m.Type {
	case "":
		return false
	case TypeSaveMacro:
		return m.Name != nil && m.Macro != nil
	case TypeDeleteMacro:
		return m.Name != nil
	case TypeRelayKey:
		return m.Key != nil
	}
	return true
}

// successResponse acknowledges save and delete
type successResponse struct {
	Success bool `json:"success"`
}

// macrosResponse answers loadMacros
type macrosResponse struct {
	Macros map[string]string `json:"macros"`
}

// errorResponse reports any failure
type errorResponse struct {
	Error string `json:"error"`
}

// RunReport is the outcome of a macro run requested over the channel
type RunReport struct {
	RunID       string   `json:"runId"`
	Succeeded   int      `json:"succeeded"`
	NotFound    int      `json:"notFound"`
	Failed      int      `json:"failed"`
	Status      string   `json:"status"`
	StatusError bool     `json:"statusError"`
	Diagnostics []string `json:"diagnostics"`
}

func strPtr(s string) *string { return &s }
