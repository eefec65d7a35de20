package runtime_test

import (
	"chat-relay/domain/chat"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/sink"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOrchestrator_LoadTest(t *testing.T) {
	if testing.Short() {
		t.Skip("load test")
	}
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := logs.GetLoggerFromLevel(slog.LevelError)

	// The repository is mocked so the disk never throttles the run
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	var stored atomic.Int64
	repository.EXPECT().StoreMessage(gomock.Any()).
		Do(func(repositories.DiskMessage) { stored.Add(1) }).
		Return(nil).
		AnyTimes()

	connections := 50
	perConnection := 40
	total := connections * perConnection

	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 0), repository, nil,
		runtime.OrchestratorConfig{JournalBufferSize: total, SinkTimeout: time.Second})
	req.NoError(orchestrator.Start(ctx))
	router := orchestrator.Router()

	for i := 0; i < connections; i++ {
		id := chat.ConnectionID(fmt.Sprintf("c%d", i))
		router.Connect(id, sink.NewConnectionSink(log, 16))
		_, err := router.Join(ctx, chat.JoinCommand{ConnectionID: id, DisplayName: string(id), RoomID: "lobby"})
		req.NoError(err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	var failures atomic.Int64
	for i := 0; i < connections; i++ {
		wg.Add(1)
		go func(id chat.ConnectionID) {
			defer wg.Done()
			for n := 0; n < perConnection; n++ {
				if _, err := router.SendToRoom(ctx, chat.SendToRoomCommand{ConnectionID: id, RoomID: "lobby", Text: "load"}); err != nil {
					failures.Add(1)
				}
			}
		}(chat.ConnectionID(fmt.Sprintf("c%d", i)))
	}
	wg.Wait()
	t.Logf("%d messages routed in %s", total, time.Since(start))

	req.Zero(failures.Load())
	req.Eventually(func() bool { return stored.Load() == int64(total) }, 5*time.Second, 20*time.Millisecond)
	history, err := router.RoomHistory("lobby")
	req.NoError(err)
	req.Len(history, chat.DefaultHistoryCapacity)

	orchestrator.Stop()
}
