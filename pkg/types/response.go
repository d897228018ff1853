package types

// ErrorEnvelope is the wire shape for every failed request: each key maps to
// the list of messages describing what went wrong with it. Field-level
// validation failures use the field name as key; flow-level failures use a
// stable symbolic key such as "detail" or "non_field_errors".
type ErrorEnvelope struct {
	Errors map[string][]string `json:"errors"`
}

// TokenPair carries the access/refresh tokens issued at login, registration,
// and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// MessageResponse is the minimal success body for flows with nothing else to
// return.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// AuthResponse is the success body for flows that issue tokens.
type AuthResponse struct {
	Msg   string    `json:"msg"`
	Token TokenPair `json:"token"`
}
