// Package kaidb
package kaidb

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/metrics"

	"github.com/Pol-Polina/Anoma/lib/log"
)

const (
	DefaultMetricGatherInterval = 3 * time.Second
)

var (
	MetricDiskRead  = metricName("disk", "read")
	MetricDiskWrite = metricName("disk", "write")

	MetricGet   = metricName("op", "get")
	MetricPut   = metricName("op", "put")
	MetricBatch = metricName("op", "batch")
)

// Setup metrics
var (
	diskReadMeter  = metrics.NewRegisteredMeter(MetricDiskRead, nil)  // Meter for measuring the effective amount of data read
	diskWriteMeter = metrics.NewRegisteredMeter(MetricDiskWrite, nil) // Meter for measuring the effective amount of data written

	getMeter   = metrics.NewRegisteredMeter(MetricGet, nil)
	putMeter   = metrics.NewRegisteredMeter(MetricPut, nil)
	batchTimer = metrics.NewRegisteredTimer(MetricBatch, nil)
)

func metricName(group, name string) string {
	if group != "" {
		return fmt.Sprintf("kaidb/%s/%s", group, name)
	}
	return name
}

type GetProperty func(name string) (value string, err error)

// UpdateDBMeter periodically retrieves the leveldb io counters and reports
// them to the metrics subsystem. It returns once a channel is received on
// quitChan, answering on it with the last collection error.
//
// This is how the iostats look like (currently):
// Read(MB):3895.04860 Write(MB):3654.64712
func UpdateDBMeter(refresh time.Duration, propertyPrefix string, getProperty GetProperty, quitChan chan chan error) {
	logger := log.New("module", "kaidb")
	var (
		iostats [2]float64
		errCh   chan error
		mErr    error
	)
	for errCh == nil && mErr == nil {
		ioStats, err := getProperty(propertyName(propertyPrefix, "iostats"))
		if err != nil {
			logger.Error("Failed to read database iostats", "err", err)
			mErr = err
			continue
		}
		var nRead, nWrite float64
		parts := strings.Split(ioStats, " ")
		if len(parts) < 2 {
			logger.Error("Bad syntax of ioStats", "ioStats", ioStats)
			mErr = fmt.Errorf("bad syntax of ioStats %s", ioStats)
			continue
		}
		if n, err := fmt.Sscanf(parts[0], "Read(MB):%f", &nRead); n != 1 || err != nil {
			logger.Error("Bad syntax of read entry", "entry", parts[0])
			mErr = err
			continue
		}
		if n, err := fmt.Sscanf(parts[1], "Write(MB):%f", &nWrite); n != 1 || err != nil {
			logger.Error("Bad syntax of write entry", "entry", parts[1])
			mErr = err
			continue
		}
		diskReadMeter.Mark(int64((nRead - iostats[0]) * 1024 * 1024))
		diskWriteMeter.Mark(int64((nWrite - iostats[1]) * 1024 * 1024))
		iostats[0], iostats[1] = nRead, nWrite

		// Sleep a bit, then repeat the stats collection
		select {
		case errCh = <-quitChan:
			// Quit requesting, stop hammering the database
		case <-time.After(refresh):
			// Timeout, gather a new set of stats
		}
	}

	if errCh == nil {
		errCh = <-quitChan
	}
	errCh <- mErr
}

func propertyName(prefix, p string) string {
	return fmt.Sprintf("%s.%s", prefix, p)
}

// meteredDatabase counts the operations issued against a backend.
type meteredDatabase struct {
	Database
}

// NewMetered wraps db so that reads, writes and batch flushes are metered.
func NewMetered(db Database) Database {
	return &meteredDatabase{Database: db}
}

func (m *meteredDatabase) Get(key []byte) ([]byte, error) {
	getMeter.Mark(1)
	return m.Database.Get(key)
}

func (m *meteredDatabase) Put(key []byte, value []byte) error {
	putMeter.Mark(1)
	return m.Database.Put(key, value)
}

func (m *meteredDatabase) NewBatch() Batch {
	return &meteredBatch{Batch: m.Database.NewBatch()}
}

type meteredBatch struct {
	Batch
}

func (b *meteredBatch) Write() error {
	defer batchTimer.UpdateSince(time.Now())
	return b.Batch.Write()
}
