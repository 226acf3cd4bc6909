package core

import (
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

var NowFunc = time.Now // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStrings cleans every element of `ss` and drops the empty ones.
func CleanStrings(ss []string, lower ...bool) []string {
	if ss == nil {
		return nil
	}
	cleaned := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = CleanString(s, lower...); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// NewID returns a new random entity ID.
func NewID() string {
	return uuid.New().String()
}

// IsID reports whether `id` is a well-formed entity ID.
func IsID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// RoundMoney rounds `amount` to cents.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Percent returns part/total as a percentage rounded to one decimal; 0 when total is 0.
func Percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(part/total*1000) / 10
}

// Today returns the current UTC date as YYYY-MM-DD.
func Today() string {
	return NowFunc().UTC().Format(DateLayout)
}

// StartOfDay truncates `t` to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ContainsString reports whether `s` is in `ss`.
func ContainsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Getwd finds the project root: the closest parent directory holding go.mod.
// go-test changes the working directory to the package being tested, so relative paths cannot be trusted.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			// not run from the source tree (deployed binary)
			return wd
		}
		currDir = newDir
	}
}
