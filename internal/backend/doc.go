// Package backend defines the common driver interface that all execution
// backends (local Docker engine, Kubernetes batch jobs) must implement, along
// with the domain types exchanged between the orchestrator and driver
// implementations.
package backend
