package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Comcast/gridbus/bus"
	gojaeval "github.com/Comcast/gridbus/interpreters/goja"
	"github.com/Comcast/gridbus/protocol"
	"github.com/Comcast/gridbus/sheet"
	"github.com/Comcast/gridbus/storage/bolt"
	"github.com/Comcast/gridbus/tools"
	"github.com/Comcast/gridbus/util"
)

func main() {

	var (
		configFile = flag.String("c", "", "YAML config file")
		dbFile     = flag.String("d", "", "storage filename (overrides config)")
		httpPort   = flag.String("h", "", "HTTP port for WebSocket service and vocab page (overrides config)")
		relayURL   = flag.String("relay", "", "relay base URL to poll (overrides config)")
		token      = flag.String("token", "", "bearer token for relay and WebSocket auth (overrides config)")
		name       = flag.String("w", "", "workbook name (overrides config)")
	)

	flag.BoolVar(&util.Logging, "v", false, "log lots of wonderful things")

	flag.Parse()

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		panic(err)
	}
	cfg.Override(*name, *dbFile, *httpPort, *relayURL, *token)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	var store *bolt.Storage
	if cfg.DBFile != "" {
		if store, err = bolt.NewStorage(cfg.DBFile); err != nil {
			panic(err)
		}
		if err = store.Open(ctx); err != nil {
			panic(err)
		}
	}

	wb := sheet.NewWorkbook(cfg.Name)
	interp := gojaeval.NewInterpreter()
	engine := sheet.NewEngine(wb, interp)
	registry := protocol.NewRegistry(engine, interp)
	b := bus.NewBus(registry)

	go func() {
		if err := b.Serve(ctx); err != nil && ctx.Err() == nil {
			panic(err)
		}
	}()

	if store != nil {
		if doc, err := store.LoadDocument(ctx, cfg.Name); err == nil {
			if err = sheet.ImportJSON(wb, doc); err != nil {
				log.Printf("gridd load error %v; starting empty", err)
				wb.Clear()
			}
		}
	}

	cfg.Boot(ctx, b)

	if cfg.HTTPPort != "" {
		ws := &bus.WebSocketService{
			Bus:   b,
			Token: cfg.Token,
		}
		http.HandleFunc("/ws/api", ws.Handler(ctx))
		http.HandleFunc("/vocab", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := tools.RenderVocabPage(w); err != nil {
				log.Printf("gridd vocab render error %v", err)
			}
		})
		go func() {
			log.Printf("HTTP service on %s", cfg.HTTPPort)
			if err := http.ListenAndServe(cfg.HTTPPort, nil); err != nil {
				panic(err)
			}
		}()
	}

	if cfg.RelayURL != "" {
		p := bus.NewPoller(cfg.RelayURL, cfg.Token, b)
		if cfg.PollIntervalMS > 0 {
			p.Interval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
		}
		go func() {
			log.Printf("polling relay %s", cfg.RelayURL)
			if err := p.Run(ctx); err != nil && ctx.Err() == nil {
				panic(err)
			}
		}()
	}

	if cfg.MQTTBroker != "" {
		t := bus.NewMQTTTransport(cfg.MQTTBroker, cfg.MQTTClientID, b)
		t.Token = cfg.Token
		go func() {
			if err := t.Run(ctx); err != nil && ctx.Err() == nil {
				panic(err)
			}
		}()
	}

	if store != nil {
		save := func() {
			wb.Lock()
			js, err := sheet.ExportJSON(wb)
			wb.Unlock()
			if err != nil {
				log.Printf("gridd export error %v", err)
				return
			}
			if err := store.SaveDocument(ctx, cfg.Name, js); err != nil {
				log.Printf("gridd save error %v", err)
			}
		}
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					save()
				}
			}
		}()
		defer func() {
			save()
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			if err := store.Close(sctx); err != nil {
				log.Printf("gridd store close error %v", err)
			}
		}()
	}

	<-ctx.Done()
}
