// Package errmsg turns errors into the one-line messages the CLI prints.
package errmsg

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/sanposhin/internal/common"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	Offline     = "You are offline. Your changes are saved on this device and will sync when the connection returns."
	StorageFull = "This device is out of storage space. Free some space and try again."
	Auth        = "Please sign in again."
	Credentials = "Incorrect user id or password."
	Network     = "Could not reach the server. Check your connection and try again."
	Server      = "The server had a problem. Please try again later."
	RateLimited = "Too many attempts. Please wait and try again."
	Unknown     = "Something went wrong. Please try again."
	UserExists  = "That user id is already taken."
	NotFound    = "Not found."
)

// Message picks the single message for err. Being offline wins over
// everything else because the write has already been kept locally.
func Message(err error, online bool) string {
	if err == nil {
		return ""
	}
	if !online {
		return Offline
	}
	if IsStorageFull(err) {
		return StorageFull
	}

	switch common.KindOf(err) {
	case common.KindUnauthorized:
		return Auth
	case common.KindInvalidCredentials:
		return Credentials
	case common.KindUnavailable:
		return Network
	case common.KindServerFault:
		return Server
	case common.KindInvalidInput:
		return inputMessage(err)
	case common.KindRateLimited:
		return rateLimitMessage(err)
	case common.KindConflict:
		return UserExists
	case common.KindNotFound:
		return NotFound
	default:
		return Unknown
	}
}

// IsStorageFull reports SQLITE_FULL from the local database.
func IsStorageFull(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL {
		return true
	}
	return strings.Contains(err.Error(), "database or disk is full")
}

// inputMessage strips the sentinel prefix so the user sees only the reason.
func inputMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, common.ErrInvalidInput.Error()+": "); i >= 0 {
		msg = msg[i+len(common.ErrInvalidInput.Error())+2:]
	}
	if msg == "" || msg == common.ErrInvalidInput.Error() {
		return "Invalid input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func rateLimitMessage(err error) string {
	var rl *common.RateLimitError
	if errors.As(err, &rl) && !rl.RetryAt.IsZero() {
		return "Too many attempts. Try again after " + rl.RetryAt.Local().Format("15:04") + "."
	}
	return RateLimited
}
