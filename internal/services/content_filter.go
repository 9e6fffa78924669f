package services

import (
	"regexp"
	"strings"
)

// bannedWords covers slurs, sexual content and scam bait. Everyday swearing about
// a bad road ("shitty road") is allowed.
var bannedWords = []string{
	"cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"scam", "scammer", "phishing", "malware",
}

const (
	reasonLanguage = "inappropriate_language"
	reasonURL      = "url_not_allowed"
	reasonContact  = "contact_info_not_allowed"
	reasonSpam     = "spam_detected"
)

var rejectionMessages = map[string]string{
	reasonLanguage: "contains inappropriate language.",
	reasonURL:      "must not contain URLs or web links.",
	reasonContact:  "must not contain contact information.",
	reasonSpam:     "appears to be spam.",
}

// ContentFilter screens free-text report fields before they are stored.
type ContentFilter struct {
	bannedWord *regexp.Regexp
	url        *regexp.Regexp
	email      *regexp.Regexp
	phone      *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	quoted := make([]string, len(bannedWords))
	for i, w := range bannedWords {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return &ContentFilter{
		bannedWord: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
		url:        regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`),
		email:      regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		phone:      regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`),
	}
}

// Check returns the rejection reason for text, or "" when it is acceptable.
func (f *ContentFilter) Check(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if f.bannedWord.MatchString(text) {
		return reasonLanguage
	}
	if f.url.MatchString(text) {
		return reasonURL
	}
	if f.email.MatchString(text) || f.phone.MatchString(text) {
		return reasonContact
	}
	if hasCharRun(text, 6) {
		return reasonSpam
	}
	return ""
}

func hasCharRun(text string, n int) bool {
	run := 1
	var prev rune
	for i, r := range strings.ToLower(text) {
		if i > 0 && r == prev && r != ' ' && (r < '0' || r > '9') {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

// ContentRejectedError names the field that failed the content filter.
type ContentRejectedError struct {
	Field  string
	Reason string
}

func (e *ContentRejectedError) Error() string {
	msg, ok := rejectionMessages[e.Reason]
	if !ok {
		msg = "does not meet the content guidelines."
	}
	return strings.ToUpper(e.Field[:1]) + e.Field[1:] + " " + msg
}

// CheckFields runs Check over the named values in order and reports the first rejection.
func (f *ContentFilter) CheckFields(fields [][2]string) error {
	for _, kv := range fields {
		if reason := f.Check(kv[1]); reason != "" {
			return &ContentRejectedError{Field: kv[0], Reason: reason}
		}
	}
	return nil
}
