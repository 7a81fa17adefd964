// Package infra holds the adapters around the simulation core: the MQTT
// bridge, metrics and history sinks, error monitoring and logging. Adapters
// depend on the interfaces in core, never the reverse.
package infra
