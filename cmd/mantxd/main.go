package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/robotalks/mantx/pkg/config"
	"github.com/robotalks/mantx/pkg/framework"
	"github.com/robotalks/mantx/pkg/line"
	"github.com/robotalks/mantx/pkg/link"
	"github.com/robotalks/mantx/pkg/metrics"
	"github.com/robotalks/mantx/pkg/mqtt"
	"github.com/robotalks/mantx/pkg/transmitter"
)

var configFile string

func init() {
	config.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "TOML config file.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.LoadFile(configFile)
	if err != nil {
		glog.Exit(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	txConf, err := conf.TransmitterConfig(metrics.New(reg))
	if err != nil {
		glog.Exit(err)
	}

	runner := framework.NewRunner().HandleSignals()

	var sink line.Sink = line.SinkFunc(func(line.Level) {})
	var queue *mqtt.Queue
	if conf.MQTTBrokerURL != "" {
		if queue, err = mqtt.NewQueueFromURL(conf.MQTTBrokerURL, conf.DeviceID); err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		if err = queue.Connect(); err != nil {
			glog.Exitf("mqtt connect: %v", err)
		}
		defer queue.Close()
		lineSink := mqtt.NewLineSink(queue, conf.DeviceID, 4096)
		sink = lineSink
		runner.Go(lineSink)
	} else {
		glog.Warning("no MQTT broker, output line is discarded")
	}

	tx, err := transmitter.New(sink, txConf)
	if err != nil {
		glog.Exit(err)
	}
	source := line.NewTimerSource(conf.TickInterval())
	source.Attach(tx.Ticker())
	runner.Go(source)

	if queue != nil {
		bridge := mqtt.NewBridge(queue, tx, conf.DeviceID, 4)
		bridge.Timeout = 10 * conf.TickInterval() * time.Duration(txConf.Framer.FrameTicks(2*tx.MaxPayload()))
		runner.Go(bridge)
	}

	if conf.SerialDevice != "" {
		f, err := os.OpenFile(conf.SerialDevice, os.O_RDWR, 0)
		if err != nil {
			glog.Exitf("open %s: %v", conf.SerialDevice, err)
		}
		defer f.Close()
		runner.Go(link.NewServer(f, tx))
	}

	if conf.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: conf.MetricsAddr, Handler: mux}
		runner.Go(framework.NamedRun("metrics", framework.RunFunc(func(ctx context.Context) error {
			return framework.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
		})))
	}

	glog.Infof("mantx %s: %s, %v per bit", conf.DeviceID, txConf.Standard, conf.TickInterval())
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
