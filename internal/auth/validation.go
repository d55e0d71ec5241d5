package auth

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/google/uuid"
)

const (
	MaxLocationLength = 100
	MaxMemoLength     = 500
)

var userIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,19}$`)

// reservedUserIDs may be neither used as a user id nor as its prefix.
var reservedUserIDs = []string{
	"admin", "system", "root", "support", "api", "auth", "login", "logout",
	"signup", "backup", "restore", "public", "private", "sample", "test",
	"tester", "demo", "example", "user", "username", "yourname", "anonymous",
	"www", "app", "static", "assets", "images", "cloudinary", "firebase",
}

// ValidateUserID checks the id format and the reserved list.
func ValidateUserID(userID string) error {
	if userID == "" {
		return common.InvalidInput("user id is required")
	}
	if !userIDPattern.MatchString(userID) {
		return common.InvalidInput("user id must be 3-20 lowercase letters, digits or underscores starting with a letter")
	}
	lower := strings.ToLower(userID)
	for _, r := range reservedUserIDs {
		if strings.HasPrefix(lower, r) {
			return common.InvalidInput("user id %q is reserved", userID)
		}
	}
	return nil
}

// ValidatePassword requires exactly PasswordLength ASCII digits.
func ValidatePassword(password string) error {
	if len(password) != PasswordLength {
		return common.InvalidInput("password must be %d digits", PasswordLength)
	}
	for i := 0; i < len(password); i++ {
		if password[i] < '0' || password[i] > '9' {
			return common.InvalidInput("password must be %d digits", PasswordLength)
		}
	}
	return nil
}

// SanitizeText trims s and removes angle brackets and control characters
// other than newline and tab.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '<' || r == '>':
			return -1
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func ValidateLocation(name string) error {
	if utf8.RuneCountInString(name) > MaxLocationLength {
		return common.InvalidInput("location must be at most %d characters", MaxLocationLength)
	}
	return nil
}

func ValidateMemo(memo string) error {
	if utf8.RuneCountInString(memo) > MaxMemoLength {
		return common.InvalidInput("memo must be at most %d characters", MaxMemoLength)
	}
	return nil
}

// PrepareLogEntry validates entry and brings it to its stored form. A
// missing or unparsable createdAt becomes now; a valid one is kept so
// queued entries retain the time they were written on the device.
func PrepareLogEntry(entry *models.LogEntry, now time.Time) error {
	switch {
	case entry.UserID == "":
		return common.InvalidInput("userId is required")
	case entry.MissionID == "":
		return common.InvalidInput("missionId is required")
	case entry.MissionText == "":
		return common.InvalidInput("missionText is required")
	}
	if entry.ClientID != "" {
		if _, err := uuid.Parse(entry.ClientID); err != nil {
			return common.InvalidInput("clientId must be a UUID")
		}
	}

	if entry.Location != nil {
		name := SanitizeText(entry.Location.Name)
		if err := ValidateLocation(name); err != nil {
			return err
		}
		if name == "" {
			entry.Location = nil
		} else {
			entry.Location = &models.Location{Name: name}
		}
	}

	entry.Memo = SanitizeText(entry.Memo)
	if err := ValidateMemo(entry.Memo); err != nil {
		return err
	}

	entry.Status = models.ParseStatus(string(entry.Status))
	entry.NormalizeImage()

	if t, err := models.ParseTime(entry.CreatedAt); err == nil {
		entry.CreatedAt = models.FormatTime(t)
	} else {
		entry.CreatedAt = models.FormatTime(now)
	}
	return nil
}
