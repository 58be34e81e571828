package email

import (
	"context"
	"fmt"
	"net/http"
)

// Email is one outbound message. TemplateVars carries the raw values for
// providers that render server side (EmailJS).
type Email struct {
	To           string
	Subject      string
	Body         string
	TemplateVars map[string]string
}

type Result struct {
	Success bool
	Message string
}

// Sender is implemented by every email backend. Failures, including missing
// configuration, are reported through Result rather than an error.
type Sender interface {
	Send(ctx context.Context, email Email) Result
}

// HTTPClient abstracts http.Client.Do for tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func ok(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func failed(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

func formatFrom(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
