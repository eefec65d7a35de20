package internal

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chat-relay/repositories"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const defaultPrefix = "msg:"

type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Namespace string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// NewInspectHandler renders the journal entries under ?prefix= as an HTML table.
// Nothing in the page writes to the journal.
func NewInspectHandler(db *badger.DB, mapper RowMapper, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	if mapper == nil {
		mapper = DefaultMapper
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
}

// DefaultMapper reads the layout of a journal key, msg:{scope}:{target}:{nanos}:{uuid}.
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:       key,
		Type:      "RAW",
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Namespace: "default",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	if len(parts) >= 5 {
		row.Type = strings.ToUpper(parts[1])
		row.Namespace = parts[2]
		if tsNano, err := strconv.ParseInt(parts[3], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).UTC().Format("15:04:05")
		}
		row.EntityID = parts[4]
		if len(row.EntityID) > 8 {
			row.EntityID = row.EntityID[:8]
		}
	}
	return row
}

// MessageMapper adds the author and text of a journaled message to the row.
func MessageMapper(key string, val []byte) InspectRow {
	row := DefaultMapper(key, val)
	message, err := repositories.DecodeMessage(val)
	if err != nil {
		row.Detail = "Error: decoding failed"
		return row
	}
	row.Detail = message.Author + ": " + message.Content
	if message.AttachmentURI != "" || message.MimeType != "" {
		row.Detail += " [" + strings.TrimSpace(message.MimeType+" "+message.AttachmentURI) + "]"
	}
	return row
}
