package config

import "github.com/spf13/viper"

// setDefaults registers every configuration key so environment overrides
// resolve even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_rate", 0.01)
	v.SetDefault("telemetry.profiling.enabled", false)
	v.SetDefault("telemetry.profiling.endpoint", "http://localhost:4040")
	v.SetDefault("telemetry.profiling.profile_types", []string{"cpu", "mutex_duration", "block_duration"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.host", "127.0.0.1")
	v.SetDefault("metrics.port", 9091)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8087)

	v.SetDefault("scheduler.concurrent_slots", 1)
	v.SetDefault("scheduler.max_retx", 4)
	v.SetDefault("scheduler.cells", []map[string]any{
		{"num_prb": 52, "scs_khz": 15},
	})
}
