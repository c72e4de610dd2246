package domain

import "errors"

var (
	// ErrReloginRequired means the stored credential was rejected by the
	// storage service; the session must be cleared and the flow restarted.
	ErrReloginRequired = errors.New("re-login required")
	ErrRemote          = errors.New("remote storage error")
	ErrProcessing      = errors.New("processing error")
	ErrAuthRejected    = errors.New("email is not authorized")
)

const (
	KindAuthRejected    = "auth_rejected"
	KindReloginRequired = "relogin_required"
	KindRemote          = "remote_error"
	KindProcessing      = "processing_error"
	KindInternal        = "internal_error"
)

func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthRejected):
		return KindAuthRejected
	case errors.Is(err, ErrReloginRequired):
		return KindReloginRequired
	case errors.Is(err, ErrRemote):
		return KindRemote
	case errors.Is(err, ErrProcessing):
		return KindProcessing
	default:
		return KindInternal
	}
}
