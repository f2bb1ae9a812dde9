// Package config loads reflector configuration from an optional YAML file
// and REFLECTOR_* environment variables, with defaults for every setting.
//
// Precedence, lowest first: Default(), the file named by
// REFLECTOR_CONFIG_FILE, then the environment.
//
// Server settings:
//
//	REFLECTOR_GRPC_ADDR=":9090"
//	REFLECTOR_HTTP_ADDR=":8080"
//	REFLECTOR_SHUTDOWN_TIMEOUT="30s"
//
// Schema settings:
//
//	REFLECTOR_SCHEMA_SOURCE="filesystem"  # filesystem, s3
//	REFLECTOR_SCHEMA_ROOTS="/protos,/vendor/protos"
//	REFLECTOR_SCHEMA_WATCH="true"
//	REFLECTOR_RELOAD_SCHEDULE="@every 5m"
//	REFLECTOR_S3_BUCKET="schemas"
//	REFLECTOR_S3_PREFIX="protos/"
//
// Reflector settings:
//
//	REFLECTOR_CACHE_SIZE="256"  # 0 disables the closure cache
//
// Observability settings:
//
//	REFLECTOR_LOG_LEVEL="info"  # debug, info, warn, error
//	REFLECTOR_METRICS_ENABLED="true"
//	REFLECTOR_OTEL_ENABLED="true"
//	REFLECTOR_OTEL_ENDPOINT="otel-collector:4317"
//
// The same settings in YAML:
//
//	server:
//	  grpc_addr: ":9090"
//	schema:
//	  source: filesystem
//	  roots: [/protos]
//	  watch: true
//	reflector:
//	  cache_size: 256
//	observability:
//	  log_level: debug
package config
