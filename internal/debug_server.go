package internal

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// inspectPage renders the archive contents as a plain table. Inline so
// the inspector stays dependency free.
const inspectPage = `<!DOCTYPE html>
<html>
<head><title>SchoolSync Archive Inspector</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border-bottom: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f0f0f0; }
.stats { color: #666; margin-bottom: 1em; }
</style>
</head>
<body>
<h2>Archive: {{.Prefix}}</h2>
<div class="stats">{{range $k, $v := .Stats}}{{$k}}={{$v}} {{end}}</div>
<table>
<tr><th>Key</th><th>Room</th><th>Time</th><th>Sender</th><th>Content</th></tr>
{{range .Items}}
<tr><td>{{.Key}}</td><td>{{.Room}}</td><td>{{.Timestamp}}</td><td>{{.Sender}}</td><td>{{.Content}}</td></tr>
{{end}}
</table>
</body>
</html>`

// InspectRow is one archived entry shown by the inspector.
type InspectRow struct {
	Key       string
	Room      string
	Timestamp string
	Sender    string
	Content   string
}

type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes the local message archive over HTTP for
// debugging. Read-only: it only iterates, never mutates.
func StartDebugServer(db *badger.DB, port int, endpoint string, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.New("inspect").Parse(inspectPage))

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapRow(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("localhost:%d", port), mux)
	}()
}

// mapRow decodes an archive entry keyed msg:<room>:<unixnano>:<id>.
func mapRow(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:     key,
		Content: "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	parts := strings.Split(key, ":")
	if len(parts) >= 4 {
		row.Room = parts[1]
		if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).UTC().Format(time.TimeOnly)
		}
	}

	var entry struct {
		SenderName string `json:"sender_name"`
		Content    string `json:"content"`
	}
	if err := json.Unmarshal(val, &entry); err == nil {
		row.Sender = entry.SenderName
		row.Content = entry.Content
	}
	return row
}
