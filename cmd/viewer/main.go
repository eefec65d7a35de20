package main

import (
	"chat-relay/internal"
	"chat-relay/repositories"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if config.JournalPath == "" {
		log.Fatal("JOURNAL_PATH is required, an in-memory journal cannot be viewed")
	}

	// 2. Open the journal read-only, next to a running relay
	db, err := repositories.OpenJournalReadOnly(config.JournalPath)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer db.Close()

	// 3. Serve the inspect page only, no relay is running here
	viewerStats := func() map[string]any {
		return map[string]any{
			"Status":  "Viewer Mode (Read-Only)",
			"Journal": config.JournalPath,
			"Time":    time.Now().Format(time.RFC822),
		}
	}

	mux := http.NewServeMux()
	mux.Handle("GET /inspect", internal.NewInspectHandler(db, internal.MessageMapper, viewerStats))

	fmt.Printf("🌐 Viewer started at http://localhost:%d/inspect\n", config.ViewerPort)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", config.ViewerPort), mux); err != nil {
		log.Printf("Viewer stopped: %v", err)
	}
}
