// Package main, meydan node'unun giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//   1. Config'i yükle (SERVER_MODE node'un rolünü belirler)
//   2. Database'i başlat (embedded migration'lar ile)
//   3. WebSocket Hub'ı oluştur
//   4. SFU engine'i başlat (chat servis eden modlarda)
//   5. Repository / Service / Handler katmanlarını kur (init_*.go)
//   6. Hub ve SFU callback'lerini bağla
//   7. Route'ları moduna göre mux'a bağla
//   8. CORS + HTTP server
//   9. Graceful shutdown
//
// Global değişken YOK — her şey burada oluşturulup birbirine bağlanır.
// Katman kurulumlarının detayı init_repos.go / init_services.go /
// init_handlers.go / init_routes.go / init_callbacks.go dosyalarındadır.
package main

import (
	"context"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/candemir/meydan/config"
	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/sfu"
	"github.com/candemir/meydan/ws"
	"github.com/rs/cors"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] meydan node starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	mode := cfg.Server.Mode
	log.Printf("[main] config loaded (mode=%s port=%d)", mode, cfg.Server.Port)

	// ─── 2. Database ───
	//
	// Migration'lar binary'ye gömülüdür; tek dosya deploy edilir.
	// database.New migration FS'in kökünde *.sql arar, bu yüzden
	// embed.FS'in migrations/ alt dizinine inilir.
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatalf("[main] failed to open embedded migrations: %v", err)
	}

	db, err := database.New(cfg.Database.Path, migrations)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// Varsayılan sunucu sadece chat servis eden node'larda anlamlı;
	// auth_hub'ın server tablosu boş kalır.
	if mode.ServesChat() {
		if err := database.SeedDefaultServer(context.Background(), db.Conn, cfg.Server.DefaultServerName); err != nil {
			log.Fatalf("[main] failed to seed default server: %v", err)
		}
	}

	// ─── 3. WebSocket Hub ───
	//
	// Hub her modda kurulur ama /ws route'u sadece chat modlarında açılır.
	// Service'ler hub'a EventPublisher interface'i üzerinden erişir.
	hub := ws.NewHub()

	// ─── 4. SFU Engine ───
	//
	// UDP socket bind burada olur: port alınamıyorsa süreç hiç başlamasın.
	// auth_hub ses taşımaz, engine nil kalır.
	var engine *sfu.Engine
	if mode.ServesChat() {
		engine, err = sfu.NewEngine(sfu.Config{
			Host:        cfg.Voice.Host,
			Port:        cfg.Voice.Port,
			PublicIP:    sfuPublicIP(cfg.Voice.PublicEndpoint),
			MaxSessions: cfg.Voice.MaxSessions,
		})
		if err != nil {
			log.Fatalf("[main] failed to start sfu: %v", err)
		}
	}

	// ─── 5. Katmanlar: Repository → Service → Handler ───
	repos := initRepositories(db.Conn)

	svcs, limiters, err := initServices(repos, hub, engine, cfg)
	if err != nil {
		log.Fatalf("[main] failed to initialize services: %v", err)
	}

	handlers := initHandlers(svcs, limiters, hub, engine, cfg)

	// ─── 6. Callback Wire-up ───
	registerHubCallbacks(hub, engine, repos.Member)
	go hub.Run()

	// ─── 7. Routes ───
	mux := http.NewServeMux()
	initRoutes(mux, handlers, svcs, repos, mode)

	// ─── 8. CORS + HTTP Server ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// WriteTimeout /ws'i etkilemez: gorilla/websocket upgrade sırasında
	// bağlantıyı hijack eder, timeout'lar sadece REST tarafına işler.
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 9. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket oturumları kapanır — client'lar kapanışı son event
	// olarak görür. Sonra HTTP server yeni istek almayı bırakıp mevcut
	// istekleri bekler (5sn üst sınır).
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	svcs.Presence.Close()
	limiters.Close()

	log.Println("[main] node stopped gracefully")
}

// sfuPublicIP, VOICE_PUBLIC_ENDPOINT'ten NAT 1:1 duyurusu için IP çıkarır.
//
// Endpoint genelde "203.0.113.7:50000" gibi dış adrestir; host kısmı
// literal bir IP ise o duyurulur. Hostname'ler (DNS çözümü ICE'a ait),
// "0.0.0.0" gibi unspecified adresler ve loopback duyurulmaz — varsayılan
// endpoint bind adresinden türediği için aksi halde her node kendini
// 0.0.0.0 olarak ilan ederdi.
func sfuPublicIP(endpoint string) string {
	host, _, err := net.SplitHostPort(endpoint)
	if err != nil {
		return ""
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsUnspecified() || ip.IsLoopback() {
		return ""
	}
	return ip.String()
}
