// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSessionTransportFailure Code = "session.transport.failure"
	CodeSessionProbeFailure     Code = "session.probe.failure"
	CodeSessionAuthDenied       Code = "session.auth.denied"
	CodeSessionStoreFailure     Code = "session.store.failure"
	CodeSessionRecipientInvalid Code = "session.recipient.invalid"

	CodeMediaDownloadFailure Code = "media.download.failure"
	CodeMediaProcessTimeout  Code = "media.process.timeout"

	CodeTranscriptionRequestInvalid    Code = "transcription.request.invalid"
	CodeTranscriptionRequestTimeout    Code = "transcription.request.timeout"
	CodeTranscriptionUpstreamFailure   Code = "transcription.upstream.failure"
	CodeTranscriptionNotFound          Code = "transcription.registry.not_found"
	CodeTranscriptionResponseMalformed Code = "transcription.response.malformed"
	CodeTranscriptionKeyUnauthorized   Code = "transcription.key.unauthorized"
	CodeTranscriptionKeyCheckFailure   Code = "transcription.key.check.failure"

	CodeRelaySendFailure     Code = "relay.send.failure"
	CodeRelaySessionNotReady Code = "relay.session.not_ready"

	CodeServerInternalFailure   Code = "server.internal.failure"
	CodeServerStatusUnavailable Code = "server.status.unavailable"
	CodeServerConfigInvalid     Code = "server.config.invalid"
	CodeServerStartFailure      Code = "server.start.failure"
	CodeServerShutdownFailure   Code = "server.shutdown.failure"

	CodeCLIGatewayNotRunning Code = "cli.gateway.not_running"
	CodeCLIRequestFailure    Code = "cli.request.failure"
	CodeCLIResponseInvalid   Code = "cli.response.invalid"
	CodeCLISetupFailure      Code = "cli.setup.failure"
	CodeCLIConfigExists      Code = "cli.config.exists"

	CodeSecretInvalidInput   Code = "secret.input.invalid"
	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldChat(value string) Attr {
	return Field("chat", value)
}

func FieldMessageID(value string) Attr {
	return Field("message_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldRecipient(value string) Attr {
	return Field("recipient", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// Reclassify files err under code's domain. Errors already in that domain
// only gain fields; uncoded errors are wrapped; errors coded for another
// domain are re-issued under code with their message, since the innermost
// code in a chain wins.
func Reclassify(err error, code Code, msg string, fields ...Attr) error {
	switch {
	case err == nil:
		return nil
	case domain(CodeOf(err)) == domain(code):
		return With(err, fields...)
	case CodeOf(err) == "":
		return Wrap(err, code, msg, fields...)
	default:
		fields = append(fields, Field("cause_code", string(CodeOf(err))))
		return New(code, msg+": "+err.Error(), fields...)
	}
}

// CodeOf returns the innermost code in the chain, or "" for uncoded errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	if oopsErr.Code() == nil {
		return ""
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsUnauthorized(err error) bool {
	r := reason(CodeOf(err))
	return r == "unauthorized" || r == "forbidden" || r == "denied"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

// IsTranscriptionFailure reports whether err originated in a speech-to-text call.
func IsTranscriptionFailure(err error) bool {
	return domain(CodeOf(err)) == "transcription"
}

// IsMediaFailure reports whether err originated while fetching message media.
func IsMediaFailure(err error) bool {
	return domain(CodeOf(err)) == "media"
}

func IsRelayFailure(err error) bool {
	return domain(CodeOf(err)) == "relay"
}

func IsConfigFailure(err error) bool {
	return domain(CodeOf(err)) == "config"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnauthorized(err):
		if reason(CodeOf(err)) == "forbidden" || reason(CodeOf(err)) == "denied" {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	case reason(CodeOf(err)) == "unavailable" || reason(CodeOf(err)) == "not_ready":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}

func domain(code Code) string {
	raw := string(code)
	if idx := strings.Index(raw, "."); idx > 0 {
		return raw[:idx]
	}
	return raw
}
