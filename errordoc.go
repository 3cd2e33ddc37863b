package unillm

import "fmt"

// extractTopLevelError handles the rule shared by every parser: any body
// carrying a top-level `error` field (object or bare string), independent
// of whatever provider-specific success path would otherwise run, is an
// error *document*: a successful parse with Messages empty and Error
// populated, never a ParseError.
func extractTopLevelError(body map[string]any, family func(errType string, status int) ErrorFamily) (*ErrorInfo, bool) {
	raw, ok := body["error"]
	if !ok || raw == nil {
		return nil, false
	}

	switch e := raw.(type) {
	case string:
		return &ErrorInfo{
			Type:    ErrUnknownFamily,
			Message: e,
			Details: map[string]any{},
		}, true
	case map[string]any:
		errType := getString(e, "type")
		code := getString(e, "code")
		msg := getString(e, "message")
		if msg == "" {
			msg = fmt.Sprintf("%v", e)
		}
		status := getInt(e, "status_code")
		fam := family(errType, status)
		details := map[string]any{}
		if ra, ok := e["retry_after"]; ok {
			details["retry_after"] = ra
		}
		return &ErrorInfo{
			Code:       code,
			Type:       fam,
			Message:    msg,
			StatusCode: status,
			Details:    details,
		}, true
	default:
		return &ErrorInfo{Type: ErrUnknownFamily, Message: fmt.Sprintf("%v", raw), Details: map[string]any{}}, true
	}
}

// classifyOpenAIErrorType maps the OpenAI-family `error.type` vocabulary
// (shared by every compat provider) to an ErrorFamily.
func classifyOpenAIErrorType(errType string, status int) ErrorFamily {
	switch errType {
	case "authentication_error", "invalid_api_key":
		return ErrAuthentication
	case "rate_limit_error", "requests", "tokens":
		return ErrRateLimit
	case "invalid_request_error":
		return ErrInvalidRequest
	case "server_error", "internal_server_error":
		return ErrServer
	case "overloaded_error":
		return ErrOverloaded
	case "content_filter_error":
		return ErrContentFilter
	case "model_error", "model_not_found":
		return ErrModel
	}
	return classifyErrorByStatus(status)
}

// classifyErrorByStatus is the fallback used whenever a provider's error
// body carries no family-identifying type string, only an HTTP-ish status
// code.
func classifyErrorByStatus(status int) ErrorFamily {
	switch {
	case status == 401 || status == 403:
		return ErrAuthentication
	case status == 429:
		return ErrRateLimit
	case status == 400 || status == 404 || status == 422:
		return ErrInvalidRequest
	case status >= 500:
		return ErrServer
	default:
		return ErrUnknownFamily
	}
}
