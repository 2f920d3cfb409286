package tracehttp

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"regexp"

	"go.uber.org/zap"
)

const redacted = "REDACTED"

// secretParams are query parameters and JSON members that carry credentials
var secretParams = []string{"corpsecret", "access_token"}

var (
	authHeaderRe = regexp.MustCompile(`(?im)^((?:Proxy-)?Authorization):[^\r\n]*`)
	queryParamRe = regexp.MustCompile(`(?i)\b(corpsecret|access_token)=[^&\s]*`)
	jsonMemberRe = regexp.MustCompile(`(?i)"(corpsecret|access_token)"\s*:\s*"[^"]*"`)
)

// scrub blanks credentials in a request or response dump
func scrub(dump []byte) []byte {
	dump = authHeaderRe.ReplaceAll(dump, []byte("$1: "+redacted))
	dump = queryParamRe.ReplaceAll(dump, []byte("$1="+redacted))
	return jsonMemberRe.ReplaceAll(dump, []byte(`"$1":"`+redacted+`"`))
}

// redactURL hides the password and credential query parameters of u
func redactURL(u *url.URL) string {
	clean := *u
	query := clean.Query()
	changed := false
	for _, name := range secretParams {
		if query.Has(name) {
			query.Set(name, redacted)
			changed = true
		}
	}
	if changed {
		clean.RawQuery = query.Encode()
	}
	return clean.Redacted()
}

// traceTransport is an http.RoundTripper that logs the request and response
// at debug level while delegating the real work to another http.RoundTripper
type traceTransport struct {
	delegate http.RoundTripper
	logger   *zap.Logger
}

// RoundTrip logs a dump of the request and response while delegating the
// round trip to the delegate
func (t *traceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if dump, err := httputil.DumpRequestOut(req, true); err == nil {
		t.logger.Debug("HTTP request",
			zap.String("method", req.Method),
			zap.String("url", redactURL(req.URL)),
			zap.ByteString("dump", scrub(dump)))
	}

	resp, err := t.delegate.RoundTrip(req)
	if err != nil {
		t.logger.Debug("HTTP round trip failed",
			zap.String("url", redactURL(req.URL)),
			zap.Error(err))
		return resp, err
	}

	if dump, dumpErr := httputil.DumpResponse(resp, true); dumpErr == nil {
		t.logger.Debug("HTTP response",
			zap.String("url", redactURL(req.URL)),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("dump", scrub(dump)))
	}
	return resp, nil
}

// Wrap returns a round tripper that traces through logger. A nil delegate
// means http.DefaultTransport.
func Wrap(delegate http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	if delegate == nil {
		delegate = http.DefaultTransport
	}
	return &traceTransport{delegate: delegate, logger: logger}
}
