package services

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=tradefleet {{ .Kind }}
After=docker.service network-online.target
Requires=docker.service

[Service]
Restart=always
RestartSec=5
ExecStartPre=-/usr/bin/docker rm -f {{ .Container }}
ExecStart=/usr/bin/docker run --rm --name {{ .Container }} --env-file {{ .EnvFile }}{{ if .Port }} -p {{ .Port }}:{{ .Port }}{{ end }}{{ range .Volumes }} -v {{ . }}{{ end }} {{ .Image }}
ExecStop=/usr/bin/docker stop {{ .Container }}

[Install]
WantedBy=multi-user.target
`))

type unitParams struct {
	Kind      string
	Container string
	EnvFile   string
	Image     string
	Port      int
	Volumes   []string
}

func renderUnit(p unitParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("failed to render unit for %s: %w", p.Kind, err)
	}
	return buf.Bytes(), nil
}

func containerName(unit string) string {
	return strings.TrimSuffix(unit, ".service")
}
