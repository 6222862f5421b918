package reasoning

import (
	"errors"
	"fmt"
)

// Analysis method labels attached to results that may be enriched.
const (
	MethodRuleBased = "rule_based"
	MethodLLM       = "llm"
)

// Error kinds for failed enrichment attempts.
const (
	KindConfig     = "config"     // missing or rejected credentials
	KindTransport  = "transport"  // network failure, timeout, breaker open
	KindFormat     = "format"     // unparsable response or unexpected structure
	KindValidation = "validation" // parsed result fails allowed-value checks
)

// Error classifies a failed call to the reasoning service.
type Error struct {
	Kind    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

func NewTransportError(message string, cause error) *Error {
	return &Error{Kind: KindTransport, Message: message, Cause: cause}
}

func NewFormatError(message string, cause error) *Error {
	return &Error{Kind: KindFormat, Message: message, Cause: cause}
}

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf extracts the kind label from any error, for diagnostics and metrics.
func KindOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return "unknown"
}

// MaxDiagnosticLen bounds the message part of a Diagnostic.
const MaxDiagnosticLen = 100

// Diagnostic is the bounded failure record attached to results that fell
// back to the rule-based path.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Describe converts any enrichment failure into its bounded diagnostic.
func Describe(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}
	kind := KindOf(err)
	msg := err.Error()
	var re *Error
	if errors.As(err, &re) {
		msg = re.Message
		if re.Cause != nil {
			msg += ": " + re.Cause.Error()
		}
	}
	return Diagnostic{Kind: kind, Message: Truncate(msg, MaxDiagnosticLen)}
}

func (d Diagnostic) String() string {
	if d.Kind == "" {
		return ""
	}
	return d.Kind + ": " + d.Message
}

// Truncate bounds s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
