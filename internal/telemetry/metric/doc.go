// Package metric provides Prometheus metrics for ptb-migrate.
//
// A conversion is a short-lived process, so metrics are not served over
// HTTP. The registry is written once at the end of a run in the text
// exposition format, ready for the node_exporter textfile collector:
//
//	ptbmigrate_files_converted_total{category}
//	ptbmigrate_objects_migrated_total
//	ptbmigrate_fields_renamed_total{field}
//	ptbmigrate_sentinels_replaced_total
//	ptbmigrate_bytes_written_total
//	ptbmigrate_run_failures_total{code}
//	ptbmigrate_run_duration_seconds
//	ptbmigrate_last_run_timestamp_seconds
package metric
