// Command autopeerd runs the self-service peering API: it exposes
// init/verify/deploy/status/update/deactivate/delete over HTTP, backed by
// the dn42-style registry, the filesystem config store, and the
// WireGuard/FRR deployer.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"autopeer/pkg/api"
	"autopeer/pkg/audit"
	"autopeer/pkg/config"
	"autopeer/pkg/deploy"
	"autopeer/pkg/lifecycle"
	"autopeer/pkg/registry"
	"autopeer/pkg/store"
	"autopeer/pkg/version"
)

func main() {
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		log.Printf("autopeerd version=%s", version.Build)
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var lock registry.RefreshLock
	if cfg.ConsulAddr != "" {
		lock = registry.NewConsulLock(cfg.ConsulAddr, cfg.ConsulLockKey)
	}
	mirror := registry.NewMirror(cfg.Registry.URL, cfg.Registry.Path, cfg.Registry.Username, cfg.Registry.Token, cfg.Registry.Ref, lock)

	st := store.New(cfg.DataPending, cfg.DataVerified)
	dep := deploy.New(deploy.RealRunner{})

	engine := lifecycle.New(cfg.MyASN, cfg.JWTSecret, mirror, st, dep, "/etc/wireguard", "/etc/frr/peers.d")

	auditLog, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		log.Fatalf("audit: %v", err)
	}
	defer auditLog.Close()
	engine.Audit = auditLog

	if err := engine.Recover(0); err != nil {
		log.Printf("startup recovery: %v", err)
	}

	hub := api.NewEventHub()
	srv := api.NewServer(engine, cfg.JWTSecret, cfg.CookieDomains, hub)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.BindAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("autopeerd version=%s my_asn=%d listening on %s", version.Build, cfg.MyASN, cfg.BindAddress)

	var serveErr error
	switch {
	case cfg.TLSCert != "" && cfg.TLSKey != "" && cfg.ClientCA != "":
		tlsConfig, tlsErr := api.ServerTLSConfig(cfg.TLSCert, cfg.TLSKey, cfg.ClientCA)
		if tlsErr != nil {
			log.Fatalf("tls config: %v", tlsErr)
		}
		httpServer.TLSConfig = tlsConfig
		serveErr = httpServer.ListenAndServeTLS("", "")
	case cfg.TLSCert != "" && cfg.TLSKey != "":
		serveErr = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	default:
		serveErr = httpServer.ListenAndServe()
	}
	if serveErr != nil && serveErr != http.ErrServerClosed {
		log.Fatalf("server error: %v", serveErr)
	}
}
