package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the docvec pipeline. It is constructed
// once at startup and passed into each component constructor; there is no
// ambient global lookup.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Query     QueryConfig     `yaml:"query"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SourceConfig controls which files are loaded from the source directory.
type SourceConfig struct {
	Suffixes  []string `yaml:"suffixes"`
	Recursive bool     `yaml:"recursive"`
	Excludes  []string `yaml:"excludes"`
}

// ChunkingConfig controls how document text is split before embedding.
type ChunkingConfig struct {
	Size    int `yaml:"size"`    // target characters per chunk
	Overlap int `yaml:"overlap"` // characters shared by consecutive chunks
}

// EmbeddingConfig selects and configures the embedding model.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "google", "openai", "mock"
	Model     string `yaml:"model"`       // e.g. "text-embedding-004"
	APIKeyEnv string `yaml:"api_key_env"` // environment variable holding the API key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// IndexConfig selects and configures the remote vector index.
type IndexConfig struct {
	Provider string       `yaml:"provider"` // "vertex", "qdrant"
	Vertex   VertexConfig `yaml:"vertex"`
	Qdrant   QdrantConfig `yaml:"qdrant"`
}

// VertexConfig holds Vertex AI Vector Search identifiers. The staging bucket
// is used by the service during bulk ingestion and must carry a gs:// prefix.
type VertexConfig struct {
	Project         string `yaml:"project"`
	Region          string `yaml:"region"`
	IndexID         string `yaml:"index_id"`
	EndpointID      string `yaml:"endpoint_id"`
	DeployedIndexID string `yaml:"deployed_index_id"`
	StagingBucket   string `yaml:"staging_bucket"`
}

// QdrantConfig holds connection details for a Qdrant collection.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
}

// QueryConfig holds retrieval defaults.
type QueryConfig struct {
	TopK int `yaml:"top_k"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // DEBUG, INFO, WARNING, ERROR
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Suffixes:  []string{".txt", ".md", ".pdf"},
			Recursive: true,
			Excludes:  []string{"**/.git/**", "**/.docvec/**", "**/node_modules/**"},
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 100,
		},
		Embedding: EmbeddingConfig{
			Provider:  "google",
			Model:     "text-embedding-004",
			APIKeyEnv: "GOOGLE_API_KEY",
			Dimension: 768,
			BatchSize: 100,
		},
		Index: IndexConfig{
			Provider: "vertex",
			Vertex: VertexConfig{
				Region: "us-central1",
			},
			Qdrant: QdrantConfig{
				URL:        "http://localhost:6333",
				APIKeyEnv:  "QDRANT_API_KEY",
				Collection: "docvec",
			},
		},
		Query: QueryConfig{
			TopK: 5,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docvec.yaml,
// then .docvec/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docvec.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docvec", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration. The
// variable names match the original deployment surface of the pipeline.
func (c *Config) applyEnv() {
	setString(&c.Index.Vertex.Project, "GCP_PROJECT_ID")
	setString(&c.Index.Vertex.Region, "GCP_REGION")
	setString(&c.Index.Vertex.IndexID, "VECTOR_SEARCH_INDEX_ID")
	setString(&c.Index.Vertex.EndpointID, "VECTOR_SEARCH_INDEX_ENDPOINT_ID")
	setString(&c.Index.Vertex.DeployedIndexID, "VECTOR_SEARCH_DEPLOYED_INDEX_ID")
	setString(&c.Index.Vertex.StagingBucket, "GCS_STAGING_BUCKET_NAME")
	setString(&c.Embedding.Model, "VERTEX_EMBEDDING_MODEL")
	setString(&c.Index.Qdrant.URL, "QDRANT_URL")
	setString(&c.Index.Qdrant.Collection, "QDRANT_COLLECTION")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToUpper(v)
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// ValidateChunking rejects invalid chunking parameters before any file is
// read.
func (c *Config) ValidateChunking() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	return nil
}

// ValidateIndexing checks the settings required for index mode.
func (c *Config) ValidateIndexing() error {
	if err := c.ValidateChunking(); err != nil {
		return err
	}
	if c.Index.Provider == "vertex" {
		if missing := c.missingVertexVars(true); len(missing) > 0 {
			return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

// ValidateQuery checks the settings required for query mode.
func (c *Config) ValidateQuery() error {
	if c.Index.Provider == "vertex" {
		if missing := c.missingVertexVars(false); len(missing) > 0 {
			return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

// missingVertexVars names Vertex settings that are unset. The staging bucket
// is only required for indexing; the deployed index ID only for querying.
func (c *Config) missingVertexVars(indexing bool) []string {
	var missing []string
	v := c.Index.Vertex
	if v.Project == "" {
		missing = append(missing, "GCP_PROJECT_ID")
	}
	if v.Region == "" {
		missing = append(missing, "GCP_REGION")
	}
	if v.IndexID == "" {
		missing = append(missing, "VECTOR_SEARCH_INDEX_ID")
	}
	if v.EndpointID == "" {
		missing = append(missing, "VECTOR_SEARCH_INDEX_ENDPOINT_ID")
	}
	if indexing {
		if v.StagingBucket == "" {
			missing = append(missing, "GCS_STAGING_BUCKET_NAME")
		}
	} else if v.DeployedIndexID == "" {
		missing = append(missing, "VECTOR_SEARCH_DEPLOYED_INDEX_ID")
	}
	return missing
}

// NormalizedStagingBucket returns the staging bucket with a gs:// prefix,
// which the Vertex client expects.
func (c *Config) NormalizedStagingBucket() string {
	b := c.Index.Vertex.StagingBucket
	if b == "" || strings.HasPrefix(b, "gs://") {
		return b
	}
	return "gs://" + b
}

// StoreDBPath returns the path to the local chunk store database.
func StoreDBPath(dir string) string {
	return filepath.Join(dir, ".docvec", "index.db")
}

// EnsureStateDir ensures the .docvec directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docvec"), 0755)
}
