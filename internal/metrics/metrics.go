// Package metrics exposes the Prometheus counters and gauges that the
// scheduler and gc packages report through, namespaced the way a
// container registry's own metrics layer namespaces its counters.
package metrics

import "github.com/docker/go-metrics"

// NamespacePrefix is the namespace all holo metrics are registered under.
const NamespacePrefix = "holo"

var (
	// SchedulerNamespace covers build/bind execution counters.
	SchedulerNamespace = metrics.NewNamespace(NamespacePrefix, "scheduler", nil)

	// GCNamespace covers garbage collection counters.
	GCNamespace = metrics.NewNamespace(NamespacePrefix, "gc", nil)
)

var (
	// BuildsRealized counts builds successfully realized (cache miss, ran to completion).
	BuildsRealized = SchedulerNamespace.NewCounter("builds_realized_total", "number of builds realized")

	// BuildsCached counts builds whose output was already complete.
	BuildsCached = SchedulerNamespace.NewCounter("builds_cached_total", "number of builds served from cache")

	// BuildsFailed counts builds that failed during realization.
	BuildsFailed = SchedulerNamespace.NewCounter("builds_failed_total", "number of builds that failed")

	// BuildsSkipped counts builds skipped due to a failed dependency.
	BuildsSkipped = SchedulerNamespace.NewCounter("builds_skipped_total", "number of builds skipped due to a failed dependency")

	// BindsApplied counts binds successfully applied or updated.
	BindsApplied = SchedulerNamespace.NewCounter("binds_applied_total", "number of binds applied")

	// BindsFailed counts binds that failed during apply/update.
	BindsFailed = SchedulerNamespace.NewCounter("binds_failed_total", "number of binds that failed")

	// BindsSkipped counts binds skipped due to a failed dependency.
	BindsSkipped = SchedulerNamespace.NewCounter("binds_skipped_total", "number of binds skipped due to a failed dependency")
)

var (
	// GCObjectsDeleted counts store directories removed by a gc run.
	GCObjectsDeleted = GCNamespace.NewCounter("objects_deleted_total", "number of store objects deleted by gc")

	// GCBytesFreed counts bytes freed by a gc run.
	GCBytesFreed = GCNamespace.NewCounter("bytes_freed_total", "number of bytes freed by gc")
)

func init() {
	metrics.Register(SchedulerNamespace)
	metrics.Register(GCNamespace)
}
