package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# dittopnfs Configuration File
#
# pNFS device and layout manager. Every key can be overridden with an
# environment variable: DITTOPNFS_<SECTION>_<KEY>, e.g. DITTOPNFS_LOGGING_LEVEL=DEBUG`

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// entry is one commented key of the generated file. value is either a
// nested []entry or anything yaml can encode.
type entry struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg as YAML with a comment on every section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	s3 := cfg.Telemetry.S3
	ff := cfg.PNFS.FlexFiles

	root := []entry{
		{"logging", "Logging: level is DEBUG, INFO, WARN or ERROR; format is text or json;\noutput is stdout, stderr or a file path", []entry{
			{"level", "", cfg.Logging.Level},
			{"format", "", cfg.Logging.Format},
			{"output", "", cfg.Logging.Output},
		}},
		{"server", "", []entry{
			{"shutdown_timeout", "Maximum time to wait for in-flight work on shutdown", cfg.Server.ShutdownTimeout.String()},
		}},
		{"pnfs", "pNFS device manager", []entry{
			{"data_servers", "Data servers as host:port. Host names are resolved at load time.\nAn empty list routes every file through the metadata server.\nExample: [\"10.0.0.1:2049\", \"ds1.example.org:2049\"]", cfg.PNFS.DataServers},
			{"layout_types", "Served layout types in priority order: nfsv4_1_files, flex_files", cfg.PNFS.LayoutTypes},
			{"stripe_size", "Stripe unit in bytes (multiple of 64)", cfg.PNFS.StripeSize},
			{"flex_files", "Flex file layout parameters", []entry{
				{"version", "NFS version spoken by the data servers (3 or 4)", ff.Version},
				{"minor_version", "", ff.MinorVersion},
				{"user", "Synthetic credentials presented to loosely coupled data servers", ff.User},
				{"group", "", ff.Group},
				{"rsize", "", ff.RSize},
				{"wsize", "", ff.WSize},
				{"stats_collect_hint", "Ask clients to report I/O statistics every n seconds (0 = no hint)", ff.StatsCollectHint},
			}},
		}},
		{"metadata", "Layout store: memory or badger", []entry{
			{"type", "", cfg.Metadata.Type},
			{"default_io_layout", "Route files without an explicit decision to the data servers", BoolValue(cfg.Metadata.DefaultIOLayout, true)},
			{"memory", "", cfg.Metadata.Memory},
			{"badger", "", map[string]any{"db_path": DefaultBadgerDBPath}},
		}},
		{"telemetry", "Flex file layout return statistics", []entry{
			{"enabled", "", cfg.Telemetry.Enabled},
			{"rate_limit", "Reports per second per client (0 = unlimited)", []entry{
				{"requests_per_second", "", cfg.Telemetry.RateLimit.RequestsPerSecond},
				{"burst", "", cfg.Telemetry.RateLimit.Burst},
			}},
			{"log", "", []entry{
				{"enabled", "", BoolValue(cfg.Telemetry.Log.Enabled, true)},
			}},
			{"s3", "Archive every report as a JSON object.\nCredentials default to the AWS credential chain.", []entry{
				{"enabled", "", s3.Enabled},
				{"bucket", "", s3.Bucket},
				{"region", "", s3.Region},
				{"key_prefix", "", s3.KeyPrefix},
				{"endpoint", "Custom endpoint for MinIO or Localstack", s3.Endpoint},
				{"max_retries", "", s3.MaxRetries},
				{"timeout", "", s3.Timeout.String()},
			}},
		}},
		{"metrics", "Prometheus /metrics and /healthz endpoint", []entry{
			{"enabled", "", cfg.Metrics.Enabled},
			{"port", "", cfg.Metrics.Port},
		}},
	}

	body, err := mappingNode(root)
	if err != nil {
		return "", fmt.Errorf("failed to build config document: %w", err)
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: configHeader,
		Content:     []*yaml.Node{body},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	return buf.String(), nil
}

func mappingNode(entries []entry) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: e.key, HeadComment: e.comment}

		var value *yaml.Node
		if nested, ok := e.value.([]entry); ok {
			v, err := mappingNode(nested)
			if err != nil {
				return nil, err
			}
			value = v
		} else {
			value = &yaml.Node{}
			if err := value.Encode(e.value); err != nil {
				return nil, fmt.Errorf("%s: %w", e.key, err)
			}
		}

		n.Content = append(n.Content, key, value)
	}
	return n, nil
}
