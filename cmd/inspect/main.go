// Command inspect prints the state of a relay as tables: live from its HTTP
// API, or offline from a journal directory.
package main

import (
	"chat-relay/repositories"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	RelayURL    string `envconfig:"RELAY_URL" default:"http://localhost:8080"`
	JournalPath string `envconfig:"JOURNAL_PATH"`
	Limit       int    `envconfig:"INSPECT_LIMIT" default:"50"`
	Colours     bool   `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	journal := flag.String("journal", config.JournalPath, "Journal directory, switches to offline mode")
	roomID := flag.String("room", "lobby", "Room whose live history is printed")
	limit := flag.Int("limit", config.Limit, "Maximum journal entries printed")
	flag.Parse()

	if !config.Colours {
		color.Disable()
	}

	var err error
	if *journal != "" {
		err = inspectJournal(*journal, *limit)
	} else {
		err = inspectLive(NewClient(config.RelayURL), *roomID)
	}
	if err != nil {
		color.Red.Println(err)
		os.Exit(1)
	}
}

func inspectJournal(path string, limit int) error {
	db, err := repositories.OpenJournalReadOnly(path)
	if err != nil {
		return fmt.Errorf("error while opening journal: %w", err)
	}
	defer db.Close()

	messages, err := repositories.NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn), nil).ListMessages(limit)
	if err != nil {
		return err
	}

	header("Journal " + path)
	table := newTable("Scope", "Target", "Time", "Id", "Author", "Content", "Attachment")
	for _, m := range messages {
		table.Append([]string{
			string(m.Scope),
			m.Target,
			m.At.Format("15:04:05"),
			fmt.Sprint(m.MessageID),
			m.Author,
			truncate(m.Content, 60),
			strings.TrimSpace(m.MimeType + " " + m.AttachmentURI),
		})
	}
	table.Render()
	fmt.Printf("%d entries\n", len(messages))
	return nil
}

func inspectLive(client *Client, roomID string) error {
	stats, err := client.Stats()
	if err != nil {
		return err
	}
	header("Relay")
	table := newTable("Rooms", "Identities", "Mailboxes", "Room messages", "Private messages", "Uptime")
	table.Append([]string{
		fmt.Sprint(stats.Rooms),
		fmt.Sprint(stats.Identities),
		fmt.Sprint(stats.Mailboxes),
		fmt.Sprint(stats.RoomMessages),
		fmt.Sprint(stats.PrivateMessages),
		stats.Uptime,
	})
	table.Render()

	users, err := client.Users()
	if err != nil {
		return err
	}
	header("Connections")
	table = newTable("Id", "Name", "Rooms")
	for _, u := range users {
		name := u.DisplayName
		if name == "" {
			name = color.Gray.Sprint("(anonymous)")
		}
		rooms := make([]string, len(u.Rooms))
		for i, r := range u.Rooms {
			rooms[i] = string(r)
		}
		table.Append([]string{string(u.ID), name, strings.Join(rooms, ",")})
	}
	table.Render()

	history, err := client.Messages(roomID)
	if err != nil {
		return err
	}
	header("Room " + roomID)
	table = newTable("Id", "Time", "Sender", "Message", "Read", "Reactions")
	for _, m := range history {
		read := color.Gray.Sprint("no")
		if m.Read {
			read = color.Green.Sprint("yes")
		}
		reactions := make([]string, 0, len(m.Reactions))
		for who, symbol := range m.Reactions {
			reactions = append(reactions, who+":"+symbol)
		}
		table.Append([]string{
			fmt.Sprint(m.ID),
			m.CreatedAt.Format("15:04:05"),
			m.SenderDisplayName,
			truncate(m.Text, 60),
			read,
			strings.Join(reactions, " "),
		})
	}
	table.Render()
	return nil
}

func header(title string) {
	fmt.Println()
	color.New(color.BgBlack, color.FgGreen).Printf("  ====== %s ======  \n", title)
}

func newTable(columns ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(columns)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
