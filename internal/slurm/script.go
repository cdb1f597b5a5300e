package slurm

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/google/uuid"
)

// ScriptOptions parameterize the generated batch script.
type ScriptOptions struct {
	JobName string // defaults to llm-inference-<short-uuid>
	Command []string
	Email   string // optional; adds mail directives when set
	Output  string // scheduler-side log file, %j expands to the job id

	Partition string
	Gres      string
	TimeLimit string
	Memory    string
}

const scriptTemplate = `#!/bin/bash
#SBATCH --job-name={{.JobName}}
#SBATCH --output={{.Output}}
#SBATCH --nodes=1
#SBATCH --ntasks=1
{{- if .Partition}}
#SBATCH --partition={{.Partition}}
{{- end}}
{{- if .Gres}}
#SBATCH --gres={{.Gres}}
{{- end}}
{{- if .Memory}}
#SBATCH --mem={{.Memory}}
{{- end}}
#SBATCH --time={{.TimeLimit}}
{{- if .Email}}
#SBATCH --mail-user={{.Email}}
#SBATCH --mail-type=BEGIN,END,FAIL
{{- end}}

{{.QuotedCommand}}
`

// RenderScript produces the batch script text handed to Submit. The container
// command is embedded as a single shell-quoted line. Rendering fails if any
// template placeholder survives into the output.
func RenderScript(opts ScriptOptions) (string, error) {
	if len(opts.Command) == 0 {
		return "", fmt.Errorf("render script: empty command")
	}
	if opts.JobName == "" {
		opts.JobName = "llm-inference-" + uuid.NewString()[:8]
	}
	if opts.Output == "" {
		opts.Output = "llm-inference-%j.log"
	}
	if opts.TimeLimit == "" {
		opts.TimeLimit = "24:00:00"
	}

	tmpl, err := template.New("sbatch").Parse(scriptTemplate)
	if err != nil {
		return "", fmt.Errorf("parse script template: %w", err)
	}
	data := struct {
		ScriptOptions
		QuotedCommand string
	}{opts, QuoteCommand(opts.Command)}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render script: %w", err)
	}
	out := sb.String()
	if strings.Contains(out, "{{") || strings.Contains(out, "}}") {
		return "", fmt.Errorf("render script: unresolved placeholder in output")
	}
	return out, nil
}

// QuoteCommand joins argv into one line safe to paste into a POSIX shell.
func QuoteCommand(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = quoteWord(a)
	}
	return strings.Join(quoted, " ")
}

func quoteWord(w string) string {
	if w == "" {
		return "''"
	}
	if !strings.ContainsAny(w, " \t\n\"'`$&|;<>()*?[]#~%!{}\\") {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}
