package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/spf13/viper"

	"github.com/x-xyz/goexchange/base/log"
)

const (
	// ddRate is the rate to pass metrics to the datadog agent. 1 means always
	ddRate = 1
	// buffer 10 counters before sending to statsd
	bufferMetrics = 10

	ddPort = 8125
)

var (
	initOnce = sync.Once{}
	ddClient statsCli
)

type statsCli interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
}

// noopCli is installed when no datadog host is configured, e.g. in tests
type noopCli struct{}

func (noopCli) Gauge(string, float64, []string, float64) error              { return nil }
func (noopCli) Count(string, int64, []string, float64) error                { return nil }
func (noopCli) Histogram(string, float64, []string, float64) error          { return nil }
func (noopCli) TimeInMilliseconds(string, float64, []string, float64) error { return nil }

func initDDClient() {
	host := viper.GetString("datadog_host")
	if host == "" {
		ddClient = noopCli{}
		return
	}

	addr := fmt.Sprintf("%s:%d", host, ddPort)
	log.Log().WithFields(log.Fields{"addr": addr}).Info("connecting to datadog agent")

	cli, err := statsd.NewBuffered(addr, bufferMetrics)
	if err != nil {
		log.Log().WithFields(log.Fields{"addr": addr, "err": err}).Panic("can't talk to datadog agent")
	}
	ddClient = cli
}

// Service is the metric surface used across the codebase
type Service interface {
	BumpAvg(key string, val float64, tags ...string)
	BumpSum(key string, val float64, tags ...string)
	BumpHistogram(key string, val float64, tags ...string)
	BumpTime(key string, tags ...string) interface{ End() }
}

type impl struct {
	prefix string
}

// New returns a Service which prefixes every key with `prefix.`
func New(prefix string) Service {
	initOnce.Do(initDDClient)
	return &impl{prefix: prefix}
}

func (im *impl) key(key string) string {
	return im.prefix + "." + key
}

func parseTags(tags []string) []string {
	res := []string{}
	for i := 0; i+1 < len(tags); i += 2 {
		res = append(res, fmt.Sprintf("%s:%s", tags[i], tags[i+1]))
	}
	return res
}

func (im *impl) BumpAvg(key string, val float64, tags ...string) {
	if err := ddClient.Gauge(im.key(key), val, parseTags(tags), ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key}).Error("BumpAvg fail")
	}
}

func (im *impl) BumpSum(key string, val float64, tags ...string) {
	if err := ddClient.Count(im.key(key), int64(val), parseTags(tags), ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key}).Error("BumpSum fail")
	}
}

func (im *impl) BumpHistogram(key string, val float64, tags ...string) {
	if err := ddClient.Histogram(im.key(key), val, parseTags(tags), ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key}).Error("BumpHistogram fail")
	}
}

type endable struct {
	key   string
	tags  []string
	start time.Time
}

func (e *endable) End() {
	elapsed := float64(time.Since(e.start)) / float64(time.Millisecond)
	if err := ddClient.TimeInMilliseconds(e.key, elapsed, e.tags, ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": e.key}).Error("BumpTime fail")
	}
}

func (im *impl) BumpTime(key string, tags ...string) interface{ End() } {
	return &endable{key: im.key(key), tags: parseTags(tags), start: time.Now()}
}
