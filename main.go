package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"plumcore-go/config"
	"plumcore-go/drivers/memflash"
	"plumcore-go/drivers/simwave"
	"plumcore-go/drivers/sysclock"
	"plumcore-go/iface"
	"plumcore-go/locator"
	"plumcore-go/services/flashfifo"
	"plumcore-go/services/flashvol"
	"plumcore-go/services/heartbeat"
	"plumcore-go/services/mqbatch"
	"plumcore-go/services/mqlogsink"
	"plumcore-go/services/mqperiodogram"
	"plumcore-go/services/mqsensor"
	"plumcore-go/services/mqstats"
	"plumcore-go/services/plogrouter"
	"plumcore-go/services/wavesource"
	"plumcore-go/types/ndarray"
	"plumcore-go/ulog"
)

const moduleName = "main"

// defaultConfig drives the demo pipeline used when no configuration file is
// given: two simulated accelerometer channels split to topics, a batcher, a
// periodogram, a statistics node and a log sink.
var defaultConfig = config.System{
	Log: config.Log{Level: "debug"},
	Flash: config.Flash{
		Volumes: []config.Volume{{Name: "log", Start: 64 * 1024, Size: 1024 * 1024}},
		Fifo: config.Fifo{
			Volume:       "log",
			KeystreamKey: "000102030405060708090a0b0c0d0e0f",
			MacKey:       "f0e1d2c3b4a5968778695a4b3c2d1e0f",
		},
	},
	Pipeline: config.Pipeline{
		Channels: []config.Channel{
			{Index: 0, Topic: "acc/x", MaxSamples: 64},
			{Index: 1, Topic: "acc/y", MaxSamples: 64},
		},
		Batchers: []config.Batcher{
			{SubTopic: "acc/x", PubTopic: "acc/x/batch", Dtype: "int16", Size: 256},
		},
		Periodograms: []config.Periodogram{
			{SubTopic: "acc/x/batch", PubTopic: "acc/x/psd", Dtype: "int16",
				Size: 256, Window: "hamming", Period: 4},
		},
		Stats: []config.Stats{
			{Topic: "acc/y", Dtype: "int16", Size: 64,
				Enable: []string{"rms", "mean"}, FullScale: 65536, Bandwidth: 4000},
		},
		Sensors: []config.Sensor{},
		LogSinks: []string{"acc/y/rms"},
	},
}

func dtypeOf(name string) (ndarray.DType, bool) {
	switch name {
	case "uint8":
		return ndarray.U8, true
	case "int8":
		return ndarray.I8, true
	case "uint16":
		return ndarray.U16, true
	case "int16":
		return ndarray.I16, true
	case "uint32":
		return ndarray.U32, true
	case "int32":
		return ndarray.I32, true
	case "float32", "float":
		return ndarray.Float32, true
	}
	return 0, false
}

func levelOf(name string) ulog.Level {
	switch name {
	case "debug":
		return ulog.LevelDebug
	case "warn":
		return ulog.LevelWarn
	case "error":
		return ulog.LevelError
	default:
		return ulog.LevelInfo
	}
}

func statsEnable(names []string) mqstats.Enable {
	var e mqstats.Enable
	for _, n := range names {
		switch n {
		case "rms":
			e |= mqstats.EnableRMS
		case "mean":
			e |= mqstats.EnableMean
		case "var":
			e |= mqstats.EnableVar
		case "nrms":
			e |= mqstats.EnableNRMS
		case "psd":
			e |= mqstats.EnablePSD
		case "snr":
			e |= mqstats.EnableSNR
		case "enob":
			e |= mqstats.EnableENOB
		}
	}
	return e
}

type stopper interface{ Stop() error }

func main() {
	cfg := defaultConfig
	if len(os.Args) > 1 {
		raw, err := os.ReadFile(os.Args[1])
		if err != nil {
			ulog.Criticalf(moduleName, "config: %v", err)
			os.Exit(1)
		}
		if cfg, err = config.Parse(raw); err != nil {
			ulog.Criticalf(moduleName, "config: %v", err)
			os.Exit(1)
		}
	}
	ulog.Default().SetLevel(levelOf(cfg.Log.Level))

	// The circular log ring keeps the recent history for post-mortem reads.
	ring, err := ulog.NewCBuffer(make([]byte, 8192))
	if err != nil {
		os.Exit(1)
	}
	ulog.Default().AttachRing(ring)

	// Singletons first: locator and broker exist before any registration.
	loc := locator.New()
	router := plogrouter.New()
	_ = loc.Add("plog-router", locator.TypeMq, router)

	clock := sysclock.New()
	_ = loc.Add("sysclock", locator.TypeClock, clock)
	router.SetClock(clock)
	ring.SetTimeFunc(func() uint32 {
		t, _ := clock.Get()
		return uint32(t.Unix())
	})

	var stoppers []stopper

	// Storage: staging flash, static volumes, the encrypted FIFO log.
	pv, err := memflash.New(2*1024*1024, 4096, 4096, 256)
	if err != nil {
		ulog.Criticalf(moduleName, "flash: %v", err)
		os.Exit(1)
	}
	_ = loc.Add("flash0", locator.TypeFlash, pv)
	vols, err := flashvol.New(pv)
	if err != nil {
		os.Exit(1)
	}
	byName := map[string]iface.Flash{}
	for _, vc := range cfg.Flash.Volumes {
		lv, err := vols.Create(vc.Name, vc.Start, vc.Size)
		if err != nil {
			ulog.Criticalf(moduleName, "volume '%s': %v", vc.Name, err)
			os.Exit(1)
		}
		_ = loc.Add(vc.Name, locator.TypeFlash, lv)
		byName[vc.Name] = lv
	}
	if fv := byName[cfg.Flash.Fifo.Volume]; fv != nil {
		var fcfg flashfifo.Config
		if fcfg.KeystreamKey, err = config.ParseKey(cfg.Flash.Fifo.KeystreamKey); err != nil {
			ulog.Criticalf(moduleName, "fifo keystream key: %v", err)
			os.Exit(1)
		}
		if fcfg.MacKey, err = config.ParseKey(cfg.Flash.Fifo.MacKey); err != nil {
			ulog.Criticalf(moduleName, "fifo mac key: %v", err)
			os.Exit(1)
		}
		fifo, err := flashfifo.New(fv, fcfg)
		if err != nil {
			ulog.Criticalf(moduleName, "fifo: %v", err)
			os.Exit(1)
		}
		_ = loc.Add("fifo", locator.TypeFs, fifo)
	}

	// Acquisition front end: two synthetic tones.
	source, err := simwave.New(1600, []simwave.Tone{
		{FreqHz: 50, Amplitude: 8000},
		{FreqHz: 120, Amplitude: 4000},
	})
	if err != nil {
		os.Exit(1)
	}
	_ = loc.Add("wave0", locator.TypeWaveformSource, source)

	if len(cfg.Pipeline.Channels) > 0 {
		splitter, err := wavesource.New(source, router)
		if err != nil {
			os.Exit(1)
		}
		splitter.SetClock(clock)
		for _, ch := range cfg.Pipeline.Channels {
			if err := splitter.AddChannel(ch.Index, ch.Topic, ch.MaxSamples); err != nil {
				ulog.Errorf(moduleName, "channel %d: %v", ch.Index, err)
			}
		}
		if err := splitter.Start(); err != nil {
			ulog.Criticalf(moduleName, "splitter: %v", err)
			os.Exit(1)
		}
		stoppers = append(stoppers, splitter)
	}

	for _, bc := range cfg.Pipeline.Batchers {
		dtype, ok := dtypeOf(bc.Dtype)
		if !ok {
			continue
		}
		b, err := mqbatch.New(router)
		if err == nil {
			err = b.Start(dtype, bc.Size, bc.SubTopic, bc.PubTopic)
		}
		if err != nil {
			ulog.Errorf(moduleName, "batcher '%s': %v", bc.SubTopic, err)
			continue
		}
		stoppers = append(stoppers, b)
	}

	for _, pc := range cfg.Pipeline.Periodograms {
		dtype, ok := dtypeOf(pc.Dtype)
		if !ok {
			continue
		}
		p, err := mqperiodogram.New(router)
		if err != nil {
			continue
		}
		if pc.Window == "hamming" {
			p.SetWindow(mqperiodogram.WindowHamming)
		}
		if pc.Period > 0 {
			_ = p.SetPeriod(pc.Period)
		}
		if err := p.Start(pc.SubTopic, pc.PubTopic, dtype, pc.Size); err != nil {
			ulog.Errorf(moduleName, "periodogram '%s': %v", pc.SubTopic, err)
			continue
		}
		stoppers = append(stoppers, p)
	}

	for _, sc := range cfg.Pipeline.Stats {
		dtype, ok := dtypeOf(sc.Dtype)
		if !ok {
			continue
		}
		st, err := mqstats.New(router)
		if err != nil {
			continue
		}
		st.SetEnable(statsEnable(sc.Enable))
		st.SetFullScale(sc.FullScale)
		st.SetBandwidth(sc.Bandwidth)
		if err := st.Start(sc.Topic, dtype, sc.Size); err != nil {
			ulog.Errorf(moduleName, "stats '%s': %v", sc.Topic, err)
			continue
		}
		stoppers = append(stoppers, st)
	}

	for _, sc := range cfg.Pipeline.Sensors {
		sensor, err := locator.As[iface.Sensor](loc, sc.Name)
		if err != nil {
			ulog.Errorf(moduleName, "sensor '%s' not registered", sc.Name)
			continue
		}
		src, err := mqsensor.New(sensor, sc.Topic, router, clock,
			time.Duration(sc.PeriodMs)*time.Millisecond)
		if err == nil {
			err = src.Start()
		}
		if err != nil {
			ulog.Errorf(moduleName, "sensor source '%s': %v", sc.Name, err)
			continue
		}
		stoppers = append(stoppers, src)
	}

	for _, topic := range cfg.Pipeline.LogSinks {
		sink, err := mqlogsink.New(router)
		if err == nil {
			err = sink.Start(topic)
		}
		if err != nil {
			ulog.Errorf(moduleName, "log sink '%s': %v", topic, err)
			continue
		}
		stoppers = append(stoppers, sink)
	}

	hb, err := heartbeat.New(router, heartbeat.DefaultTopic, time.Second)
	if err == nil && hb.Start() == nil {
		stoppers = append(stoppers, hb)
	}

	ulog.Infof(moduleName, "system up")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	// Stop in construction order: sources go down first so no publisher is
	// left blocked on a sink that already closed its client.
	for _, s := range stoppers {
		if err := s.Stop(); err != nil {
			ulog.Warnf(moduleName, "stop: %v", err)
		}
	}
	ulog.Infof(moduleName, "system down")
}
