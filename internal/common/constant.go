package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// TimeLayout is the canonical ISO-8601 form of LogEntry.CreatedAt.
// Fixed width keeps lexical and chronological order identical.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Error codes carried in the "code" field of failed HTTP responses.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeUserExists         = "USER_EXISTS"
	CodeRateLimit          = "RATE_LIMIT"
	CodeUnavailable        = "UNAVAILABLE"
	CodeServerError        = "SERVER_ERROR"
)
