package telegram

import "fmt"

// TransportError reports a failed Bot API call: network failure, a non-JSON
// or unexpected response, an API-level rejection, or a response that does not
// match the expected schema. The client never retries; callers decide.
type TransportError struct {
	Op          string // Bot API method or "download"
	Code        int    // Telegram error_code, 0 when not reported
	Description string
	Err         error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telegram %s: Telegram error %d: %s", e.Op, e.Code, e.Description)
	}
	return fmt.Sprintf("telegram %s: %s", e.Op, e.Description)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FormatError reports an update payload that failed structural validation.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return "invalid update: " + e.Reason
	}
	return fmt.Sprintf("invalid update: %s for '%s'", e.Reason, e.Field)
}

func transportErr(op string, err error, format string, args ...interface{}) *TransportError {
	desc := fmt.Sprintf(format, args...)
	if err != nil {
		desc = fmt.Sprintf("%s: %v", desc, err)
	}
	return &TransportError{Op: op, Description: desc, Err: err}
}

func schemaErr(op, field, expected string) *TransportError {
	return &TransportError{
		Op:          op,
		Description: fmt.Sprintf("unexpected response: expected %s for '%s'", expected, field),
	}
}
