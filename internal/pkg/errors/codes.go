package errors

import (
	"fmt"
	"net/http"
)

// Code ties a business error code to an HTTP status and default message
type Code struct {
	Code    int
	Status  int
	Message string
}

const (
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidToken = 2006
	ErrAuthTokenExpired = 2007

	// Conversation errors (6000-6999)
	ErrConversationNotFound     = 6000
	ErrConversationForbidden    = 6001
	ErrCompactionInProgress     = 6002
	ErrCompactionFailed         = 6003
	ErrSummarizerUnavailable    = 6004
	ErrConversationInvalidInput = 6005
	ErrCompactionExpanded       = 6006
	ErrConversationChanged      = 6007

	// Context file errors (7000-7999)
	ErrContextFileNotFound = 7000
	ErrContextFileInvalid  = 7001
	ErrContextFileTooLarge = 7002
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	ErrAuthInvalidToken: {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	ErrAuthTokenExpired: {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired"},

	ErrConversationNotFound:     {ErrConversationNotFound, http.StatusNotFound, "Conversation not found"},
	ErrConversationForbidden:    {ErrConversationForbidden, http.StatusForbidden, "Conversation belongs to another user"},
	ErrCompactionInProgress:     {ErrCompactionInProgress, http.StatusConflict, "Compaction already in progress"},
	ErrCompactionFailed:         {ErrCompactionFailed, http.StatusBadGateway, "Compaction failed"},
	ErrSummarizerUnavailable:    {ErrSummarizerUnavailable, http.StatusServiceUnavailable, "Summarizer unavailable"},
	ErrConversationInvalidInput: {ErrConversationInvalidInput, http.StatusBadRequest, "Invalid conversation input"},
	ErrCompactionExpanded:       {ErrCompactionExpanded, http.StatusInternalServerError, "Compaction would enlarge the conversation"},
	ErrConversationChanged:      {ErrConversationChanged, http.StatusConflict, "Conversation changed during compaction"},

	ErrContextFileNotFound: {ErrContextFileNotFound, http.StatusNotFound, "Context file not found"},
	ErrContextFileInvalid:  {ErrContextFileInvalid, http.StatusBadRequest, "Invalid context file path"},
	ErrContextFileTooLarge: {ErrContextFileTooLarge, http.StatusRequestEntityTooLarge, "Context file too large"},
}

// GetCode returns the Code for code, falling back to ErrInternalServer
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

func GetMessage(code int) string {
	return GetCode(code).Message
}

func IsClientError(code int) bool {
	s := GetHTTPStatus(code)
	return s >= 400 && s < 500
}

func IsServerError(code int) bool {
	return GetHTTPStatus(code) >= 500
}

// FormatError renders the message for code with optional details appended
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
