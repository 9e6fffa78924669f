package services

import (
	"regexp"
	"strings"
	"unicode"
)

const minPasswordLength = 8

// maxSimilarity is the Ratcliff/Obershelp ratio above which a password counts as
// too close to one of the user's own attributes.
const maxSimilarity = 0.7

var commonPasswords = map[string]bool{}

func init() {
	for _, p := range strings.Fields(`
		123456 123456789 12345678 password qwerty 123123 111111 1234567890 1234567
		qwerty123 000000 1q2w3e 1q2w3e4r5t aa12345678 abc123 password1 1234 qwertyuiop
		123321 password123 iloveyou 654321 666666 987654321 123 121212 sunshine princess
		admin welcome 666666 football monkey letmein dragon baseball master superman
		trustno1 hello freedom whatever qazwsx michael shadow ashley bailey passw0rd
		starwars login solo charlie donald mustang access flower hottie loveme zaq1zaq1
		batman 7777777 88888888 asdfghjkl asdfgh computer internet changeme secret
		pothole roadwork asphalt
	`) {
		commonPasswords[p] = true
	}
}

// PasswordPolicyError lists every rule a candidate password broke.
type PasswordPolicyError struct {
	Problems []string
}

func (e *PasswordPolicyError) Error() string {
	return strings.Join(e.Problems, " ")
}

// UserAttributes are compared against the password for similarity.
type UserAttributes struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// ValidatePassword applies the length, numeric, common-password and similarity rules.
func ValidatePassword(password string, attrs UserAttributes) error {
	var problems []string

	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}
	if commonPasswords[strings.ToLower(strings.TrimSpace(password))] {
		problems = append(problems, "This password is too common.")
	}
	if name, ok := similarAttribute(password, attrs); ok {
		problems = append(problems, "The password is too similar to the "+name+".")
	}

	if len(problems) > 0 {
		return &PasswordPolicyError{Problems: problems}
	}
	return nil
}

var nonWord = regexp.MustCompile(`\W+`)

func similarAttribute(password string, attrs UserAttributes) (string, bool) {
	pw := strings.ToLower(password)
	if pw == "" {
		return "", false
	}
	candidates := []struct {
		name  string
		value string
	}{
		{"username", attrs.Username},
		{"email address", attrs.Email},
		{"first name", attrs.FirstName},
		{"last name", attrs.LastName},
	}
	for _, c := range candidates {
		value := strings.ToLower(c.value)
		if value == "" {
			continue
		}
		parts := append([]string{value}, nonWord.Split(value, -1)...)
		for _, part := range parts {
			if part == "" {
				continue
			}
			if similarity(pw, part) >= maxSimilarity {
				return c.name, true
			}
		}
	}
	return "", false
}

// similarity computes 2*M/T where M is the number of characters in matching blocks.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

func matchingChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	i, j, n := longestCommonSubstring(a, b)
	if n == 0 {
		return 0
	}
	return n + matchingChars(a[:i], b[:j]) + matchingChars(a[i+n:], b[j+n:])
}

func longestCommonSubstring(a, b []rune) (int, int, int) {
	bestI, bestJ, best := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
					bestI, bestJ = i-cur[j], j-cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, best
}
