package graphsummarizer

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/semstreams/component"

	"github.com/c360studio/semsum/export"
	"github.com/c360studio/semsum/pattern"
	"github.com/c360studio/semsum/vocabulary/semsum"
)

// graphSummarizerSchema defines the configuration schema.
var graphSummarizerSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the graph-summarizer processor component.
type Config struct {
	Ports   *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
	Format  string                `json:"format" schema:"type:string,description:Summary serialization format (turtle/ntriples/jsonld),category:basic,default:turtle"`
	BaseIRI string                `json:"base_iri" schema:"type:string,description:Namespace for summary pattern IRIs,category:basic,default:http://example.org/"`
	Org     string                `json:"org" schema:"type:string,description:Organization segment of published IDs,category:basic,default:local"`

	K          int     `json:"k" schema:"type:int,description:Number of patterns to mine,category:mining,default:100"`
	EpsilonRow float64 `json:"epsilon_row"`
	EpsilonCol float64 `json:"epsilon_col"`

	// Miner is the external miner command. Patterns, when set, replaces
	// mining with a fixed pattern file.
	Miner        []string `json:"miner,omitempty" schema:"type:array,description:External miner command,category:mining"`
	Patterns     string   `json:"patterns,omitempty" schema:"type:string,description:Pattern file used instead of a miner,category:advanced"`
	MinerTimeout string   `json:"miner_timeout" schema:"type:string,description:Timeout for one miner run,category:mining,default:10m"`

	// FlushInterval is the length of the tumbling window of entities that
	// one summary covers.
	FlushInterval string `json:"flush_interval" schema:"type:string,description:How often the entity window is summarized,category:basic,default:1m"`
	// MaxEntities flushes the window early once it holds this many entities.
	MaxEntities int `json:"max_entities" schema:"type:int,description:Entity count that triggers an early flush,category:advanced,default:10000"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Format != "" {
		if _, err := export.ParseFormat(c.Format); err != nil {
			return err
		}
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if len(c.Miner) == 0 && c.Patterns == "" {
		return fmt.Errorf("either miner or patterns is required")
	}
	if c.MinerTimeout != "" {
		if _, err := time.ParseDuration(c.MinerTimeout); err != nil {
			return fmt.Errorf("invalid miner_timeout: %w", err)
		}
	}
	if c.FlushInterval != "" {
		d, err := time.ParseDuration(c.FlushInterval)
		if err != nil {
			return fmt.Errorf("invalid flush_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("flush_interval must be positive")
		}
	}
	if c.MaxEntities < 0 {
		return fmt.Errorf("max_entities must not be negative")
	}
	return nil
}

// Params returns the mining parameters.
func (c *Config) Params() pattern.Params {
	return pattern.Params{K: c.K, EpsilonRow: c.EpsilonRow, EpsilonCol: c.EpsilonCol}
}

// GetFormat returns the configured export format.
func (c *Config) GetFormat() export.Format {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return export.FormatTurtle
	}
	return f
}

// GetFlushInterval returns the flush interval as a duration.
func (c *Config) GetFlushInterval() time.Duration {
	d, err := time.ParseDuration(c.FlushInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// GetMinerTimeout returns the miner timeout (0 = no limit).
func (c *Config) GetMinerTimeout() time.Duration {
	d, err := time.ParseDuration(c.MinerTimeout)
	if err != nil {
		return 0
	}
	return d
}

// GetBaseIRI returns the configured base IRI with a default fallback.
func (c *Config) GetBaseIRI() string {
	if c.BaseIRI != "" {
		return c.BaseIRI
	}
	return semsum.DefaultBase
}

// DefaultConfig returns the default configuration for graph-summarizer.
func DefaultConfig() Config {
	params := pattern.DefaultParams()
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "entities_in",
					Type:        "jetstream",
					Subject:     "graph.ingest.entity",
					StreamName:  "GRAPH",
					Required:    true,
					Description: "Entity ingest messages from the graph pipeline",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "summary_out",
					Type:        "jetstream",
					Subject:     "graph.export.summary",
					Required:    true,
					Description: "Serialized summary graphs for downstream consumers",
				},
			},
		},
		Format:        string(export.FormatTurtle),
		BaseIRI:       semsum.DefaultBase,
		Org:           "local",
		K:             params.K,
		EpsilonRow:    params.EpsilonRow,
		EpsilonCol:    params.EpsilonCol,
		MinerTimeout:  "10m",
		FlushInterval: "1m",
		MaxEntities:   10000,
	}
}
