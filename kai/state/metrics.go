package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/metrics"
)

var (
	MetricApplyBlock = metricName("state", "block/apply")
	MetricTxApplied  = metricName("state", "tx/applied")
	MetricTxFailed   = metricName("state", "tx/failed")
	MetricBoundaries = metricName("state", "epoch/boundaries")
	MetricEpoch      = metricName("state", "epoch/current")
)

var (
	applyBlockTimer   = metrics.NewRegisteredTimer(MetricApplyBlock, metrics.DefaultRegistry)
	txAppliedMeter    = metrics.NewRegisteredMeter(MetricTxApplied, metrics.DefaultRegistry)
	txFailedMeter     = metrics.NewRegisteredMeter(MetricTxFailed, metrics.DefaultRegistry)
	boundaryCounter   = metrics.NewRegisteredCounter(MetricBoundaries, metrics.DefaultRegistry)
	currentEpochGauge = metrics.NewRegisteredGauge(MetricEpoch, metrics.DefaultRegistry)
)

func metricName(group, name string) string {
	if group != "" {
		return fmt.Sprintf("%s/%s", group, name)
	}
	return name
}
