package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// sensitiveFields are attribute keys whose values never reach a log sink.
var sensitiveFields = []string{
	"password", "secret", "token", "key",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token",
	"authorization", "auth", "bearer", "cookie",
}

var sensitiveValues = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`),
	// Quote/0 open API keys
	regexp.MustCompile(`^dot_app_[A-Za-z0-9_-]+$`),
	// Query strings carrying a key, as in a logged upstream URL
	regexp.MustCompile(`(?i)[?&](api_?key|token|key)=[^&\s]+`),
}

// DefaultRedactOptions returns the masq options every logger applies.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveFields)+len(sensitiveValues)+2)

	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	opts = append(opts, masq.WithFieldPrefix("secret"), masq.WithFieldPrefix("private"))

	for _, re := range sensitiveValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// RedactValues hides the given literal values wherever a string attribute
// equals or contains one. Empty values are skipped.
func RedactValues(values ...string) []masq.Option {
	var opts []masq.Option

	for _, v := range values {
		if v == "" {
			continue
		}

		opts = append(opts, masq.WithRegex(regexp.MustCompile(regexp.QuoteMeta(v))))
	}

	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr applying DefaultRedactOptions and opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
