package stack

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/driftbox/driftboxctl/internal/config"
)

// caddyfileTemplate serves the domain from the loopback app port and redirects
// the www host permanently to the bare domain. The global email block is
// emitted only when an ACME contact was configured.
var caddyfileTemplate = template.Must(template.New("Caddyfile").Parse(
	`{{if .AcmeEmail}}{
	email {{.AcmeEmail}}
}

{{end}}{{.Domain}} {
	reverse_proxy localhost:{{.AppPort}} {
		header_up X-Real-IP {remote_host}
	}
}

www.{{.Domain}} {
	redir https://{{.Domain}}{uri} permanent
}
`))

func renderCaddyfile(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	err := caddyfileTemplate.Execute(&buf, struct {
		Domain    string
		AcmeEmail string
		AppPort   int
	}{
		Domain:    cfg.Domain,
		AcmeEmail: cfg.AcmeEmail,
		AppPort:   AppPort,
	})
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}
