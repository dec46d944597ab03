package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// sampleConfig is the commented template written by `ransched init`.
const sampleConfig = `# ransched configuration
#
# Every key can be overridden with an environment variable:
#   RANSCHED_<SECTION>_<KEY>, e.g. RANSCHED_LOGGING_LEVEL=DEBUG

logging:
  level: INFO        # DEBUG, INFO, WARN, ERROR
  format: text       # text or json
  output: stdout     # stdout, stderr, or a file path

telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 0.01
  profiling:
    enabled: false
    endpoint: http://localhost:4040
    profile_types: [cpu, mutex_duration, block_duration]

metrics:
  enabled: true
  host: 127.0.0.1
  port: 9091

api:
  enabled: true
  host: 127.0.0.1
  port: 8087

scheduler:
  # Number of slot contexts that may be processed concurrently (1-4).
  concurrent_slots: 1
  # HARQ retransmission budget per transport block.
  max_retx: 4
  cells:
    - num_prb: 52
      scs_khz: 15
      # pdcch_candidates[i] is the candidate count at aggregation level 2^i.
      # Omitted: two candidates each at L2 and L4, one at L8.
      # pdcch_candidates: [0, 2, 2, 1, 0]
`

// InitConfig writes the sample configuration to the default location.
// Returns the path written.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes the sample configuration to an explicit path.
// Refuses to overwrite an existing file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	// The template must stay loadable; catch drift at init time rather
	// than at server start.
	var probe map[string]any
	if err := yaml.Unmarshal([]byte(sampleConfig), &probe); err != nil {
		return fmt.Errorf("sample config is not valid yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
