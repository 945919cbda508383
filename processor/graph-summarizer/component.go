// Package graphsummarizer provides a streaming processor that collects
// graph entities from the ingest stream and periodically publishes a
// pattern summary of everything seen in the window.
package graphsummarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semsum/pattern"
	"github.com/c360studio/semsum/pipeline"
	"github.com/c360studio/semsum/publish"
	"github.com/c360studio/semsum/rdf"
)

const componentName = "graph-summarizer"

// maxFlushAttempts bounds how often one window is summarized before it is
// dropped.
const maxFlushAttempts = 3

// Component implements the graph-summarizer processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	summarizer *pipeline.Summarizer
	window     *window
	flushCh    chan struct{}

	// Resolved subjects from port config
	inputSubject  string
	inputStream   string
	outputSubject string

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}

	// Metrics
	messagesProcessed atomic.Int64
	decodeErrors      atomic.Int64
	summaries         atomic.Int64
	summaryErrors     atomic.Int64
	failedFlushes     atomic.Int64
	droppedEntities   atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent creates a new graph-summarizer component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	inputSubject := publish.GraphIngestSubject
	inputStream := publish.StreamName
	outputSubject := publish.SummaryExportSubject
	if len(config.Ports.Inputs) > 0 {
		inputSubject = config.Ports.Inputs[0].Subject
		if config.Ports.Inputs[0].StreamName != "" {
			inputStream = config.Ports.Inputs[0].StreamName
		}
	}
	if len(config.Ports.Outputs) > 0 {
		outputSubject = config.Ports.Outputs[0].Subject
	}

	logger := deps.GetLogger().With("component", componentName)

	var source pattern.Source
	if config.Patterns != "" {
		source = pattern.FileSource{Path: config.Patterns}
	} else {
		source = &pattern.ExecSource{
			Command: config.Miner,
			Timeout: config.GetMinerTimeout(),
			Logger:  logger,
		}
	}

	publisher := publish.NewPublisher(deps.NATSClient,
		publish.WithLogger(logger),
		publish.WithOrg(config.Org),
		publish.WithDocumentSubject(outputSubject),
	)

	summarizer, err := pipeline.NewSummarizer(source,
		pipeline.WithParams(config.Params()),
		pipeline.WithFormat(config.GetFormat()),
		pipeline.WithBaseIRI(config.GetBaseIRI()),
		pipeline.WithPublisher(publisher),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create summarizer: %w", err)
	}

	return &Component{
		name:          componentName,
		config:        config,
		natsClient:    deps.NATSClient,
		logger:        logger,
		summarizer:    summarizer,
		window:        newWindow(),
		flushCh:       make(chan struct{}, 1),
		inputSubject:  inputSubject,
		inputStream:   inputStream,
		outputSubject: outputSubject,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start begins consuming entity ingest messages and flushing summaries.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	consumerCfg := natsclient.StreamConsumerConfig{
		StreamName:    c.inputStream,
		ConsumerName:  componentName,
		FilterSubject: c.inputSubject,
		DeliverPolicy: "new",
		AckPolicy:     "explicit",
		MaxDeliver:    3,
		AckWait:       30 * time.Second,
	}

	err := c.natsClient.ConsumeStreamWithConfig(runCtx, consumerCfg, c.handleMessage)
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
		close(c.done)
		return fmt.Errorf("start consumer: %w", err)
	}

	go c.flushLoop(runCtx)

	c.logger.Info("graph-summarizer started",
		"format", c.summarizer.Format(),
		"input", c.inputSubject,
		"output", c.outputSubject,
		"flush_interval", c.config.GetFlushInterval())

	return nil
}

// handleMessage adds one entity to the current window.
func (c *Component) handleMessage(_ context.Context, msg jetstream.Msg) {
	entityID, graphTriples, err := decodeEntity(msg.Data())
	if err != nil {
		c.logger.Warn("Failed to decode entity",
			"error", err,
			"subject", msg.Subject())
		c.decodeErrors.Add(1)
		// Redelivery cannot fix a malformed message.
		_ = msg.Term()
		return
	}

	size := c.addEntity(entityID, graphTriples)
	_ = msg.Ack()
	c.messagesProcessed.Add(1)
	c.updateLastActivity()

	if c.config.MaxEntities > 0 && size >= c.config.MaxEntities {
		c.requestFlush()
	}
}

// addEntity converts and stores an entity, returning the window size.
// Pattern entities published by semsum are ignored.
func (c *Component) addEntity(entityID string, graphTriples []message.Triple) int {
	if strings.HasPrefix(entityID, summaryPrefix) {
		return c.window.len()
	}

	triples := make([]rdf.Triple, 0, len(graphTriples))
	for _, t := range graphTriples {
		if rt, ok := toTriple(t); ok {
			triples = append(triples, rt)
		}
	}
	return c.window.add(entityID, triples)
}

func (c *Component) requestFlush() {
	select {
	case c.flushCh <- struct{}{}:
	default:
	}
}

func (c *Component) flushLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.config.GetFlushInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flush(ctx)
		case <-c.flushCh:
			c.flush(ctx)
		}
	}
}

// flush summarizes the current window and starts a new one. The serialized
// document is published by the summarizer on the output subject. A window
// that fails to summarize is put back and retried on the next flush, up to
// maxFlushAttempts times, then dropped.
func (c *Component) flush(ctx context.Context) *pipeline.Report {
	b := c.window.drain()
	if len(b.order) == 0 {
		return nil
	}
	triples := b.triples()

	report, err := c.summarizer.Summarize(ctx, triples, pipeline.Job{
		Input:  c.inputSubject,
		Writer: io.Discard,
	})
	if err != nil {
		c.summaryErrors.Add(1)
		attempts := c.failedFlushes.Add(1)
		if attempts >= maxFlushAttempts {
			c.failedFlushes.Store(0)
			c.droppedEntities.Add(int64(len(b.order)))
			c.logger.Error("Dropping window after repeated summary failures",
				"entities", len(b.order),
				"triples", len(triples),
				"attempts", attempts,
				"error", err)
			return nil
		}
		c.window.restore(b)
		c.logger.Warn("Failed to summarize window, will retry",
			"entities", len(b.order),
			"triples", len(triples),
			"attempt", attempts,
			"error", err)
		return nil
	}

	c.failedFlushes.Store(0)
	c.summaries.Add(1)
	c.logger.Info("Published window summary",
		"run_id", report.RunID,
		"entities", len(b.order),
		"patterns", report.Patterns,
		"published", report.Published)
	return report
}

// Stop gracefully stops the component. Entities still in the window are
// dropped; their messages are already acknowledged.
func (c *Component) Stop(timeout time.Duration) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.running = false
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Warn("Timed out waiting for flush loop to stop", "timeout", timeout)
	}

	c.logger.Info("graph-summarizer stopped",
		"messages_processed", c.messagesProcessed.Load(),
		"summaries", c.summaries.Load(),
		"decode_errors", c.decodeErrors.Load(),
		"summary_errors", c.summaryErrors.Load(),
		"dropped_entities", c.droppedEntities.Load()+int64(c.window.len()))

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        componentName,
		Type:        "processor",
		Description: "Summarizes windows of graph entities into pattern graphs",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = buildPort(portDef, component.DirectionInput)
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = buildPort(portDef, component.DirectionOutput)
	}
	return ports
}

func buildPort(portDef component.PortDefinition, direction component.Direction) component.Port {
	port := component.Port{
		Name:        portDef.Name,
		Direction:   direction,
		Required:    portDef.Required,
		Description: portDef.Description,
	}
	if portDef.Type == "jetstream" {
		port.Config = component.JetStreamPort{
			StreamName: portDef.StreamName,
			Subjects:   []string{portDef.Subject},
		}
	} else {
		port.Config = component.NATSPort{
			Subject: portDef.Subject,
		}
	}
	return port
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return graphSummarizerSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	var uptime time.Duration
	if running {
		status = "running"
		uptime = time.Since(startTime)
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.decodeErrors.Load() + c.summaryErrors.Load()),
		Uptime:     uptime,
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	var errorRate float64
	if total := c.messagesProcessed.Load() + c.decodeErrors.Load(); total > 0 {
		errorRate = float64(c.decodeErrors.Load()) / float64(total)
	}
	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
