//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/instrument/syncint64"
	"go.opentelemetry.io/otel/metric/unit"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"

	"warden/third_party/forked/golang/glog"

	otelCfg "warden/pkg/logging/otel/config"
)

type CMetric int

const (
	Accept CMetric = CMetric(iota)
	Close
	ReqProc
	ProcErr
	AuthFail
	ForwardFail
)

type Tags struct {
	TagName  string
	TagValue string
}

const (
	Endpoint  = string("endpoint")
	Operation = string("operation")
	Status    = string("status")
	Node      = string("node")
)

// OTEL status
const (
	StatusSuccess string = "SUCCESS"
	StatusFatal   string = "FATAL"
	StatusError   string = "ERROR"
	StatusWarning string = "WARNING"
	StatusUnknown string = "UNKNOWN"
)

const kMetricPrefix = "warden.server."
const MeterName = "warden-server-meter"

var (
	acceptCounterOnce      sync.Once
	closeCounterOnce       sync.Once
	reqProcCounterOnce     sync.Once
	procErrCounterOnce     sync.Once
	authFailCounterOnce    sync.Once
	forwardFailCounterOnce sync.Once

	rpcHistogramOnce     sync.Once
	connectHistogramOnce sync.Once
)

var rpcHistogram syncint64.Histogram
var connectHistogram syncint64.Histogram

type countMetric struct {
	metricName    string
	metricDesc    string
	counter       syncint64.Counter
	createCounter *sync.Once
}

var countMetricMap map[CMetric]*countMetric = map[CMetric]*countMetric{
	Accept:      {"accept", "Accepting incoming connections", nil, &acceptCounterOnce},
	Close:       {"close", "Closing incoming connections", nil, &closeCounterOnce},
	ReqProc:     {"ReqProc", "Request processor", nil, &reqProcCounterOnce},
	ProcErr:     {"ProcErr", "Request processor error", nil, &procErrCounterOnce},
	AuthFail:    {"AuthFail", "Credential verification failures", nil, &authFailCounterOnce},
	ForwardFail: {"ForwardFail", "Tree fan-out child failures", nil, &forwardFailCounterOnce},
}

var (
	meterProvider *metric.MeterProvider
)

func Initialize(args ...interface{}) (err error) {
	sz := len(args)
	if sz < 1 {
		err = fmt.Errorf("otel config argument not as expected")
		glog.Error(err)
		return
	}
	var c *otelCfg.Config
	var ok bool
	if c, ok = args[0].(*otelCfg.Config); !ok {
		err = fmt.Errorf("wrong argument type")
		glog.Error(err)
		return
	}
	c.Validate()
	c.Dump()
	if c.Enabled {
		InitMetricProvider(c)
	}
	return
}

func Finalize() {
	if meterProvider != nil {
		meterProvider.Shutdown(context.Background())
		meterProvider = nil
	}
}

func InitMetricProvider(config *otelCfg.Config) {
	if meterProvider != nil {
		return
	}
	otelCfg.OtelConfig = config

	ctx := context.Background()
	provider, err := NewMeterProvider(ctx, *config)
	if err != nil {
		glog.Errorf("otel meter provider: %v", err)
		return
	}
	provider.Meter(MeterName)
	global.SetMeterProvider(provider)
}

func NewMeterProvider(ctx context.Context, cfg otelCfg.Config) (*metric.MeterProvider, error) {
	exp, err := NewHTTPExporter(ctx)
	if err != nil {
		return nil, err
	}

	res := getResourceInfo(cfg.Poolname)
	reader := metric.NewPeriodicReader(exp, metric.WithInterval(time.Duration(cfg.Resolution)*time.Second))
	meterProvider = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
	)
	return meterProvider, nil
}

func NewHTTPExporter(ctx context.Context) (metric.Exporter, error) {
	var deltaTemporalitySelector = func(metric.InstrumentKind) metricdata.Temporality { return metricdata.DeltaTemporality }
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(fmt.Sprintf("%s:%d", otelCfg.OtelConfig.Host, otelCfg.OtelConfig.Port)),
		otlpmetrichttp.WithTimeout(7 * time.Second),
		otlpmetrichttp.WithCompression(otlpmetrichttp.NoCompression),
		otlpmetrichttp.WithTemporalitySelector(deltaTemporalitySelector),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 1 * time.Second,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  240 * time.Second,
		}),
	}
	if !otelCfg.OtelConfig.UseTls {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func IsEnabled() bool {
	return meterProvider != nil
}

func GetHistogramForRPC() (syncint64.Histogram, error) {
	var err error
	rpcHistogramOnce.Do(func() {
		meter := global.Meter(MeterName)
		rpcHistogram, err = meter.SyncInt64().Histogram(
			kMetricPrefix+"rpc",
			instrument.WithUnit(unit.Milliseconds),
			instrument.WithDescription("Histogram for warden RPC exchanges"),
		)
	})
	if rpcHistogram == nil {
		return nil, errors.New("histogram object not ready")
	}
	return rpcHistogram, err
}

func GetHistogramForConnect() (syncint64.Histogram, error) {
	var err error
	connectHistogramOnce.Do(func() {
		meter := global.Meter(MeterName)
		connectHistogram, err = meter.SyncInt64().Histogram(
			kMetricPrefix+"outbound_connection",
			instrument.WithUnit(unit.Milliseconds),
			instrument.WithDescription("Histogram for warden outbound connections"),
		)
	})
	if connectHistogram == nil {
		return nil, errors.New("histogram object not ready")
	}
	return connectHistogram, err
}

func GetCounter(counterName CMetric) (syncint64.Counter, error) {
	counterMetric, ok := countMetricMap[counterName]
	if !ok {
		return nil, errors.New("no such counter exists")
	}
	counterMetric.createCounter.Do(func() {
		meter := global.Meter(MeterName)
		counterMetric.counter, _ = meter.SyncInt64().Counter(
			kMetricPrefix+counterMetric.metricName,
			instrument.WithDescription(counterMetric.metricDesc),
		)
	})
	if counterMetric.counter == nil {
		return nil, errors.New("counter object not ready")
	}
	return counterMetric.counter, nil
}

func RecordOperation(opType string, status string, latency int64) {
	ctx := context.Background()
	if operation, err := GetHistogramForRPC(); err == nil {
		commonLabels := []attribute.KeyValue{
			attribute.String(Operation, opType),
			attribute.String(Status, status),
		}
		operation.Record(ctx, latency, commonLabels...)
	}
}

func RecordOutboundConnection(endpoint string, status string, latency int64) {
	ctx := context.Background()
	if connect, err := GetHistogramForConnect(); err == nil {
		commonLabels := []attribute.KeyValue{
			attribute.String(Endpoint, endpoint),
			attribute.String(Status, status),
		}
		connect.Record(ctx, latency, commonLabels...)
	}
}

func RecordCount(counterName CMetric, tags []Tags) {
	ctx := context.Background()
	counter, err := GetCounter(counterName)
	if err != nil {
		return
	}
	if len(tags) != 0 {
		counter.Add(ctx, 1, convertTagsToOTELAttributes(tags)...)
	} else {
		counter.Add(ctx, 1)
	}
}

func convertTagsToOTELAttributes(tags []Tags) (attr []attribute.KeyValue) {
	attr = make([]attribute.KeyValue, len(tags))
	for i := 0; i < len(tags); i++ {
		attr[i] = attribute.String(tags[i].TagName, tags[i].TagValue)
	}
	return
}

func getResourceInfo(appName string) *resource.Resource {
	hostname, _ := os.Hostname()
	env := "dev"
	if otelCfg.OtelConfig != nil {
		env = otelCfg.OtelConfig.Environment
	}
	return resource.NewWithAttributes("",
		attribute.String("service.name", appName),
		attribute.String("host", hostname),
		attribute.String("environment", env),
	)
}
