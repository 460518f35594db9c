package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/trap-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
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
	"volts": func(mv float64) string {
		return fmt.Sprintf("%.3fV", mv/1000)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Trap Receiver</title>
<style>
body { font-family: monospace; max-width: 800px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.sprung { color: red; font-weight: bold; }
.set { color: green; }
.unknown { color: orange; }
.stale { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Trap Receiver</h1>

<h2>Traps</h2>
{{if .Devices}}
<table>
<tr><th>Device</th><th>State</th><th>Last event</th><th>Battery</th><th>Last heard</th><th>Uplinks</th></tr>
{{range .Devices}}<tr{{if .Stale}} class="stale"{{end}}>
<td><a href="/devices/{{.ID}}">{{.ID}}</a></td>
<td class="{{.Status}}">{{.Status}}</td>
<td>{{.LastEvent}}</td>
<td>{{volts .BatteryMillivolts}}</td>
<td>{{duration .Since}} ago{{if .Stale}} (stale){{end}}</td>
<td>{{.Uplinks}}</td>
</tr>
{{end}}</table>
{{else}}
<p>No uplinks received yet.</p>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
<tr><th>Kafka</th><td>{{if .Config.KafkaTopic}}{{.Config.KafkaTopic}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Decoded</th><td>{{.Decoded}}</td></tr>
<tr><th>Rejected</th><td>{{.Rejected}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type deviceRow struct {
	status.Device
	Since time.Duration
	Stale bool
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]deviceRow, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		rows = append(rows, deviceRow{
			Device: d,
			Since:  snap.Now.Sub(d.LastSeen),
			Stale:  d.Stale(snap.Now, snap.Config.StaleAfter),
		})
	}
	data := struct {
		status.Snapshot
		Devices []deviceRow
		Uptime  time.Duration
	}{
		Snapshot: snap,
		Devices:  rows,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("http: render index: %v", err)
	}
}
