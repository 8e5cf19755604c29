// Package shell renders the init snippets that hook hop into interactive shells.
package shell

import (
	"embed"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Shell names a supported shell
type Shell string

const (
	Bash Shell = "bash"
	Zsh  Shell = "zsh"
	Fish Shell = "fish"
)

// DefaultCommand is the name of the jump function
const DefaultCommand = "j"

// Supported lists the shells Render knows
func Supported() []Shell {
	return []Shell{Bash, Zsh, Fish}
}

// Parse resolves a shell name, ignoring case and surrounding space
func Parse(name string) (Shell, error) {
	s := Shell(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Supported() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%q is not a supported shell, must be one of: bash, zsh, fish", name)
}

// Options configure the rendered snippet
type Options struct {
	// Binary is the hop executable the snippet calls
	Binary string
	// Command is the jump function name; empty means DefaultCommand
	Command string
}

var commandName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Render writes the init snippet for sh to w
func Render(w io.Writer, sh Shell, opts Options) error {
	cmd := opts.Command
	if cmd == "" {
		cmd = DefaultCommand
	}
	if !commandName.MatchString(cmd) {
		return fmt.Errorf("invalid command name %q", cmd)
	}
	if opts.Binary == "" {
		return fmt.Errorf("missing hop binary path")
	}

	data := struct {
		Bin string
		Cmd string
	}{
		Bin: Quote(sh, opts.Binary),
		Cmd: cmd,
	}
	if err := templates.ExecuteTemplate(w, string(sh)+".tmpl", data); err != nil {
		return fmt.Errorf("render %s init: %w", sh, err)
	}
	return nil
}

// Quote returns s as a single word for sh
func Quote(sh Shell, s string) string {
	if sh == Fish {
		r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
		return "'" + r.Replace(s) + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
