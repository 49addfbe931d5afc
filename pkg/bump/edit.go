package bump

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Stanza patterns of a formula file. The file is rewritten by plain string
// substitution of these stanzas; no Ruby parsing is attempted.
var (
	urlStanzaRe      = regexp.MustCompile(`(?m)^(\s*url\s+")[^"]*(")`)
	versionStanzaRe  = regexp.MustCompile(`(?m)^(\s*version\s+")[^"]*(")`)
	sha256StanzaRe   = regexp.MustCompile(`(?m)^(\s*sha256\s+")[^"]*(")`)
	versionCaptureRe = regexp.MustCompile(`(?m)^\s*version\s+"([^"]*)"`)
)

// NewVersionEdit reads the formula file at path and produces the FileEdit
// that bumps it: the url stanza is pointed at newURL, and the version and
// sha256 stanzas are rewritten when newVersion/newSHA are non-empty. The
// commit message follows the standard bump form "<formula> <old> -> <new>",
// falling back to "<formula> <new>" when the old version is not declared in
// the file.
func NewVersionEdit(path, formulaName, newVersion, newURL, newSHA string) (*FileEdit, error) {
	// #nosec G304 - The formula path is supplied by the caller on purpose
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read formula %s: %w", path, err)
	}
	old := string(data)

	updated := old
	touched := false
	if newURL != "" && urlStanzaRe.MatchString(updated) {
		updated = urlStanzaRe.ReplaceAllString(updated, "${1}"+newURL+"${2}")
		touched = true
	}
	if newVersion != "" && versionStanzaRe.MatchString(updated) {
		updated = versionStanzaRe.ReplaceAllString(updated, "${1}"+newVersion+"${2}")
		touched = true
	}
	if newSHA != "" && sha256StanzaRe.MatchString(updated) {
		updated = sha256StanzaRe.ReplaceAllString(updated, "${1}"+newSHA+"${2}")
		touched = true
	}

	if !touched {
		return nil, fmt.Errorf("%w: %s", errStanzaNotFound, path)
	}
	if updated == old {
		return nil, fmt.Errorf("%w: %s", errNoChanges, path)
	}

	message := strings.TrimSpace(fmt.Sprintf("%s %s", formulaName, newVersion))
	if oldVersion := declaredVersion(old); oldVersion != "" && newVersion != "" {
		message = fmt.Sprintf("%s %s -> %s", formulaName, oldVersion, newVersion)
	}

	return &FileEdit{
		Path:        path,
		OldContents: old,
		NewContents: updated,
		Message:     message,
	}, nil
}

// declaredVersion extracts the version stanza's value, if the formula has one.
func declaredVersion(contents string) string {
	m := versionCaptureRe.FindStringSubmatch(contents)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
