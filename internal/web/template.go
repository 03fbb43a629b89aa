package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/switch-bridge/internal/logic"
	"github.com/sweeney/switch-bridge/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"state": logic.StateString,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Switch Bridge</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Switch Bridge</h1>

<h2>Switches</h2>
<table>
{{range $i, $sw := .Switches}}<tr><th>{{$sw.Name}}</th><td id="switch-{{$i}}" class="{{if $sw.On}}on{{else}}off{{end}}">{{state $sw.On}}</td><td>{{$sw.Toggles}} toggles</td></tr>
{{else}}<tr><td>no switches configured</td></tr>
{{end}}</table>

<h2>HomeKit</h2>
<table>
<tr><th>Port</th><td>{{.Config.HAPPort}}</td></tr>
<tr><th>Clients</th><td class="{{if gt .HAP.Clients 0}}connected{{else}}disconnected{{end}}">{{.HAP.Clients}}</td></tr>
<tr><th>Unhealthy windows</th><td>{{.HAP.Unhealthy}} / {{.HAP.Threshold}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .WiFi}}<tr><th>Wi-Fi</th><td>{{.WiFi.Status}} ({{.WiFi.SSID}})</td></tr>
<tr><th>Lock</th><td>{{if .WiFi.Lock}}{{.WiFi.Lock}}{{else}}none{{end}}</td></tr>
<tr><th>Retries</th><td>{{.WiFi.Retries}}{{if .WiFi.RestartPending}}, restart pending{{end}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Reset hold</th><td>{{.Config.ResetHoldMs}}ms</td></tr>
<tr><th>Health check</th><td>{{.Config.HealthCheckMs}}ms x {{.Config.HealthThreshold}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
