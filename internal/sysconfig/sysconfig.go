// Package sysconfig reads the legacy shell-assignment configuration
// files under /etc/sysconfig (i18n, keyboard): lines of the form
// KEY="value" or KEY=value, one per line, '#' comments, no section
// headers. This is not INI (no [section]), so gopkg.in/ini.v1 does not
// apply; this mirrors the original's own bespoke prefix scan in
// zif_release_get_lang and zif_release_get_keymap.
package sysconfig

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Parse reads KEY=value assignments from r into a map. Quotes (both
// single and double) around the value are stripped. Blank lines and
// lines beginning with '#' are ignored.
func Parse(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		value = unquote(value)
		out[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "sysconfig: scanning")
	}
	return out, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Get reads key out of the assignments read from r, returning "" if the
// key is not present.
func Get(r io.Reader, key string) (string, error) {
	m, err := Parse(r)
	if err != nil {
		return "", err
	}
	return m[key], nil
}
