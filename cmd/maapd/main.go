package main

import (
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kisy/maapd/pkg/config"
	"github.com/kisy/maapd/pkg/maap"
	"github.com/kisy/maapd/pkg/metrics"
	"github.com/kisy/maapd/pkg/netiface"
	"github.com/kisy/maapd/pkg/transport"
	"github.com/kisy/maapd/web"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var configFile string
	var listenAddr string
	var ifaceName string

	flag.StringVar(&configFile, "config", "maapd.toml", "Path to configuration file")
	flag.StringVar(&listenAddr, "listen", "", "Server listen address (overrides config)")
	flag.StringVar(&ifaceName, "interface", "", "Network interface to run MAAP on (overrides config)")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if ifaceName != "" {
		cfg.Interface = ifaceName
	}
	if cfg.Interface == "" {
		log.Fatalf("No interface configured: pass -interface or set \"interface\" in %s", configFile)
	}

	log.Println("Starting maapd...")

	iface, err := netiface.Resolve(cfg.Interface)
	if err != nil {
		log.Fatalf("Failed to resolve interface %s: %v", cfg.Interface, err)
	}
	log.Printf("Bound to %s (index %d, mac %s)", iface.Name, iface.Index, net.HardwareAddr(iface.HardwareAddr[:]))

	sock, err := transport.Open(iface.Index)
	if err != nil {
		log.Fatalf("Failed to open raw socket on %s: %v", cfg.Interface, err)
	}
	defer sock.Close()
	sock.Start()

	poolBaseMAC, err := net.ParseMAC(cfg.PoolBase)
	if err != nil {
		log.Fatalf("Invalid pool_base %q: %v", cfg.PoolBase, err)
	}
	pool := maap.Pool{Base: maap.AddressFromBytes(poolBaseMAC), Len: cfg.PoolLen}

	engine := maap.NewEngine(maap.SystemClock{}, maap.NewMathRandom(time.Now().UnixNano()), sock)
	engine.Init(maap.AddressFromBytes(iface.HardwareAddr[:]), pool)

	watcher := netiface.NewWatcher(cfg.Interface)
	watcher.Start()
	defer watcher.Stop()

	var mu sync.Mutex

	exporter := metrics.NewExporter(engine, &mu)
	prometheus.MustRegister(exporter)

	srv := web.NewServer(engine, &mu)
	srv.RegisterHandlers()

	httpServer := &http.Server{Addr: cfg.Listen}
	go func() {
		log.Printf("Web server listening on %s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runLoop(engine, sock, watcher, srv, &mu, sigCh)

	log.Println("Shutting down...")
	_ = httpServer.Close()
}

// runLoop is the single-threaded host event loop the engine requires:
// every HandlePacket/HandleTimer call, and everything that reads engine
// state for the web server and metrics exporter, is serialized through mu.
// While the watched interface is down, timer and packet handling are
// skipped (inbound frames are still drained, just discarded) so probing
// and announcing pause until the link returns.
func runLoop(engine *maap.Engine, sock *transport.RawSocket, watcher *netiface.Watcher, srv *web.Server, mu *sync.Mutex, sigCh <-chan os.Signal) {
	paused := false

	for {
		delay := pausedPollInterval
		if !paused {
			mu.Lock()
			delay = engine.NextDelay()
			mu.Unlock()
		}

		timer := time.NewTimer(delay)
		select {
		case <-sigCh:
			timer.Stop()
			return
		case info, ok := <-watcher.Events():
			timer.Stop()
			if !ok {
				continue
			}
			if !info.Up && !paused {
				log.Printf("maap: interface %s is down, pausing", info.Name)
				paused = true
			} else if info.Up && paused {
				log.Printf("maap: interface %s is back up, resuming", info.Name)
				paused = false
			}
		case frame, ok := <-sock.Frames():
			timer.Stop()
			if !ok {
				return
			}
			if paused {
				continue
			}
			mu.Lock()
			if err := engine.HandlePacket(frame); err != nil {
				log.Printf("maap: dropping malformed frame: %v", err)
			}
			drainNotifications(engine, srv)
			mu.Unlock()
		case <-timer.C:
			if paused {
				continue
			}
			mu.Lock()
			if err := engine.HandleTimer(); err != nil {
				log.Printf("maap: timer error: %v", err)
			}
			drainNotifications(engine, srv)
			mu.Unlock()
		}
	}
}

// pausedPollInterval bounds how long runLoop blocks on its timer branch
// while paused, so a watcher event waking it back up is never delayed by
// more than this.
const pausedPollInterval = time.Second

// drainNotifications empties the engine's notification queue, logging each
// event and handing it to srv so /api/status can report it. Callers must
// already hold mu.
func drainNotifications(engine *maap.Engine, srv *web.Server) {
	for {
		_, n, ok := engine.Notifications().Pop()
		if !ok {
			return
		}
		log.Printf("maap: %s", n.String())
		srv.RecordNotification(n)
	}
}
