package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/projection"
	"chat-relay/repositories"
	"chat-relay/repositories/storage"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const topSenders = 10

type OrchestratorConfig struct {
	HistoryCapacity    int
	PageSize           int
	MaxAttachmentBytes int
	JournalBufferSize  int
	SinkTimeout        time.Duration
	MetricInterval     time.Duration
	ModerationEnabled  bool
	CharReplacement    rune
}

// Orchestrator assembles the relay: stores, router, moderation and the
// supervised journal pipeline. Transports only ever see the router.
type Orchestrator struct {
	mu                sync.Mutex
	log               *slog.Logger
	config            OrchestratorConfig
	supervisor        contract.ISupervisor
	router            *Router
	journal           chan event.Event
	permanentSinks    []contract.EventSink
	activity          *projection.Activity
	monitoring        *observability.MonitoringManager
	messageRepository repositories.IMessageRepository
	started           bool
	done              chan struct{}
}

// NewOrchestrator builds the stores and the router. messageRepository and
// monitoring are optional.
func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	messageRepository repositories.IMessageRepository, monitoring *observability.MonitoringManager,
	config OrchestratorConfig) *Orchestrator {
	if config.HistoryCapacity <= 0 {
		config.HistoryCapacity = chat.DefaultHistoryCapacity
	}
	journal := make(chan event.Event, config.JournalBufferSize)
	router := NewRouter(log, NewRegistry(), NewRoomStore(config.HistoryCapacity), NewMailboxStore(),
		config.PageSize, config.MaxAttachmentBytes).
		WithJournal(journal)

	return &Orchestrator{
		log:               log,
		config:            config,
		supervisor:        supervisor,
		router:            router,
		journal:           journal,
		activity:          projection.NewActivity(topSenders),
		monitoring:        monitoring,
		messageRepository: messageRepository,
		done:              make(chan struct{}),
	}
}

func (o *Orchestrator) Router() *Router { return o.router }

func (o *Orchestrator) Activity() *projection.Activity { return o.activity }

func (o *Orchestrator) Monitoring() *observability.MonitoringManager { return o.monitoring }

// Add registers extra permanent sinks. Only effective before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Start prepares moderation and the journal pipeline, then runs the
// supervisor in the background until ctx is done or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true
	o.mu.Unlock()

	// Heavy preparation (file loading, automaton build) runs unlocked
	if o.config.ModerationEnabled {
		moderator, err := o.prepareModeration("censored", o.config.CharReplacement)
		if err != nil {
			close(o.done)
			return err
		}
		o.router.WithSanitizer(moderator)
	}

	o.mu.Lock()
	for _, w := range o.prepareWorkers() {
		o.supervisor.Add(w)
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	go func() {
		defer close(o.done)
		o.supervisor.Run(ctx)
	}()
	return nil
}

// prepareModeration loads censored words and builds the Aho-Corasick automaton.
func (o *Orchestrator) prepareModeration(dir string, charReplacement rune) (*moderation.Moderator, error) {
	data, err := NewCensoredLoader(CensoredFolder).LoadAll(dir)
	if err != nil {
		return nil, err
	}
	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]", len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	return moderation.NewModerator(data.Words, charReplacement, o.log)
}

// prepareWorkers wires the journal fanout and, with monitoring, the samplers.
func (o *Orchestrator) prepareWorkers() []contract.Worker {
	sinks := []contract.EventSink{o.activity}
	if o.messageRepository != nil {
		sinks = append(sinks, storage.NewDiskSink(o.messageRepository, o.log))
	}
	sinks = append(sinks, o.permanentSinks...)

	fanout := workers.NewEventFanout(o.log, o.journal, o.config.SinkTimeout).
		WithName("journal_fanout").
		Add(sinks...)
	res := []contract.Worker{fanout}

	if o.monitoring != nil && o.config.MetricInterval > 0 {
		res = append(res,
			workers.NewHealthMonitoringWorker(o.log, o.monitoring, o.config.MetricInterval),
			workers.NewChannelCapacityWorker(o.log,
				[]workers.NamedChannel{{Name: "journal", Channel: o.journal}},
				o.monitoring, o.config.MetricInterval),
		)
	}
	return res
}

// Stop cancels the supervised workers and waits for them.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()

	o.mu.Lock()
	started := o.started
	o.mu.Unlock()
	if !started {
		return
	}
	<-o.done
	o.log.Debug("Orchestrator workers stopped")
}
