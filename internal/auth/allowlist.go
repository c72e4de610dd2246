package auth

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

const allowListPlaceholder = "# Add one authorized email per line\n"

// AllowList is the static set of emails permitted to sign in. It is loaded
// once at startup and never mutated.
type AllowList struct {
	emails map[string]struct{}
}

func NewAllowList(emails ...string) *AllowList {
	list := &AllowList{emails: make(map[string]struct{}, len(emails))}
	for _, email := range emails {
		if normalized := normalizeEmail(email); normalized != "" {
			list.emails[normalized] = struct{}{}
		}
	}
	return list
}

// LoadAllowList reads one email per line, skipping blank and '#' lines. A
// missing file is created with a placeholder comment and yields an empty list.
func LoadAllowList(path string) (*AllowList, bool, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if writeErr := os.WriteFile(path, []byte(allowListPlaceholder), 0o644); writeErr != nil {
			return nil, false, fmt.Errorf("create %s: %w", path, writeErr)
		}
		return NewAllowList(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	emails := make([]string, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		emails = append(emails, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return NewAllowList(emails...), false, nil
}

func (l *AllowList) Allowed(email string) bool {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return false
	}
	_, ok := l.emails[normalized]
	return ok
}

func (l *AllowList) Len() int {
	return len(l.emails)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
