package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService  = "service"
	FieldClientID = "client_id"
	FieldBucket   = "bucket"
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldError    = "error"
	FieldFilename = "filename"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// ClientID returns a slog attribute for the polling client identifier.
func ClientID(id string) slog.Attr {
	return slog.String(FieldClientID, id)
}

// Bucket returns a slog attribute for the canonical time-bucket key.
func Bucket(key string) slog.Attr {
	return slog.String(FieldBucket, key)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error message.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Filename returns a slog attribute for an archive filename.
func Filename(name string) slog.Attr {
	return slog.String(FieldFilename, name)
}
