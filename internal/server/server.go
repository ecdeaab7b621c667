package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quic-go/quic-go/http3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zulfikawr/freight/internal/config"
	"github.com/zulfikawr/freight/internal/discovery"
	"github.com/zulfikawr/freight/internal/logging"
	"github.com/zulfikawr/freight/internal/protocol"
	"github.com/zulfikawr/freight/internal/upload"
)

const (
	sessionCleanupInterval = 15 * time.Minute
	shutdownTimeout        = 30 * time.Second
	progressPushInterval   = 500 * time.Millisecond
)

// Server is the HTTP receiver for chunked uploads.
type Server struct {
	Addr string

	coordinator *upload.Coordinator
	cfg         *config.Config

	maxChunkSize int64
	uploadSlots  chan struct{} // backpressure ceiling for chunk requests
	limiter      *rate.Limiter // nil when bandwidth is unlimited

	zstdDecoder *zstd.Decoder

	httpServer  *http.Server
	http3Server *http3.Server
	listener    net.Listener
	advertiser  *discovery.Advertiser
	tlsCert     *tls.Certificate

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// New builds a server from configuration. The coordinator and its
// collaborators are constructed here and owned by the server.
func New(cfg *config.Config) (*Server, error) {
	maxChunk, err := cfg.MaxChunkSizeBytes()
	if err != nil {
		return nil, err
	}

	store, err := upload.NewStore(cfg.StorageDir, cfg.TempDirPrefix)
	if err != nil {
		return nil, err
	}

	validator := upload.NewValidator()
	validator.MaxChunkCount = cfg.MaxChunkCount
	validator.MaxChunkSize = maxChunk
	validator.AllowedExtensions = cfg.AllowedExtensions
	validator.BlockedExtensions = cfg.BlockedExtensions

	coord := upload.NewCoordinator(upload.NewRegistry(), store, validator)

	slots := cfg.MaxConcurrent
	if slots <= 0 {
		slots = 10
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize zstd decoder: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimitMbps > 0 {
		bytesPerSec := cfg.RateLimitMbps * 1024 * 1024 / 8
		limiter = rate.NewLimiter(rate.Limit(bytesPerSec), 64*1024)
	}

	return &Server{
		Addr:         cfg.ListenAddr,
		coordinator:  coord,
		cfg:          cfg,
		maxChunkSize: maxChunk,
		uploadSlots:  make(chan struct{}, slots),
		limiter:      limiter,
		zstdDecoder:  dec,
	}, nil
}

// Coordinator exposes the upload coordinator, mainly for tests.
func (s *Server) Coordinator() *upload.Coordinator { return s.coordinator }

// routes builds the request handler with CORS applied.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+protocol.HealthPath, s.handleHealth)
	mux.Handle("GET "+protocol.MetricsPath, promhttp.Handler())
	mux.HandleFunc("GET "+protocol.ProgressWS, s.handleProgressWebSocket)

	mux.HandleFunc("POST "+protocol.UploadPath, s.handleMultipartChunk)
	mux.HandleFunc("POST "+protocol.BinaryPath, s.handleBinaryChunk)
	mux.HandleFunc("POST /upload/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /upload/{id}/resume", s.handleResume)
	mux.HandleFunc("DELETE /upload/{id}", s.handleCancel)
	mux.HandleFunc("GET /upload/{id}", s.handleStatus)
	mux.HandleFunc("GET "+protocol.UploadPath, s.handleListAll)
	mux.HandleFunc("GET "+protocol.ResumablePath, s.handleListResumable)

	return s.corsMiddleware(mux)
}

// Start begins serving and returns the base URL.
func (s *Server) Start() (string, error) {
	handler := s.routes()

	s.httpServer = &http.Server{
		ReadTimeout:       0, // unlimited body time; rely on IdleTimeout
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    1 << 20,
		Handler:           handler,
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	s.listener = ln

	s.shutdownCtx, s.shutdownCancel = context.WithCancel(context.Background())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Error("HTTP server error", zap.Error(err))
		}
	}()

	if s.cfg.EnableHTTP3 {
		s.startHTTP3(handler, ln.Addr().String())
	}

	if s.cfg.AutoCleanup {
		maxAge := time.Duration(s.cfg.CleanupDelayHours) * time.Hour
		go s.coordinator.RunCleanup(s.shutdownCtx, sessionCleanupInterval, maxAge)
	}

	if !s.cfg.NoDiscovery {
		s.advertise(ln.Addr())
	}

	url := fmt.Sprintf("http://%s", ln.Addr().String())
	logging.Info("Server started", zap.String("url", url))
	return url, nil
}

// startHTTP3 attaches a QUIC listener sharing the mux on the same port,
// using a self-signed certificate. Best-effort: failure only logs.
func (s *Server) startHTTP3(handler http.Handler, addr string) {
	tlsConfig, err := s.quicTLSConfig()
	if err != nil {
		logging.Warn("Failed to create TLS config for QUIC", zap.Error(err))
		return
	}

	s.http3Server = &http3.Server{
		Handler:   handler,
		Addr:      addr,
		TLSConfig: tlsConfig,
	}

	go func() {
		if err := s.http3Server.ListenAndServe(); err != nil &&
			err.Error() != "quic: Server closed" &&
			err.Error() != "http3: Server closed" &&
			err.Error() != "http: Server closed" {
			logging.Warn("QUIC server error", zap.Error(err))
		}
	}()

	logging.Info("QUIC/HTTP3 listener started", zap.String("addr", addr))
}

func (s *Server) advertise(addr net.Addr) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return
	}
	ip := tcpAddr.IP
	if ip == nil || ip.IsUnspecified() {
		ip = discovery.LANAddr()
	}
	if ip == nil {
		return
	}

	instance := fmt.Sprintf("freight-%d", tcpAddr.Port)
	adv, err := discovery.Advertise(instance, ip, tcpAddr.Port)
	if err != nil {
		logging.Warn("mDNS advertise failed", zap.Error(err))
		return
	}
	s.advertiser = adv
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	if s.shutdownCancel != nil {
		s.shutdownCancel()
	}
	if s.advertiser != nil {
		s.advertiser.Close()
	}
	if s.http3Server != nil {
		if err := s.http3Server.Close(); err != nil {
			logging.Warn("Error closing HTTP/3 server", zap.Error(err))
		}
	}
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"})
}

// quicTLSConfig returns TLS configuration for the QUIC listener, generating
// a self-signed certificate on first use.
func (s *Server) quicTLSConfig() (*tls.Config, error) {
	if s.tlsCert == nil {
		cert, err := selfSignedCert()
		if err != nil {
			return nil, err
		}
		s.tlsCert = cert
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*s.tlsCert},
		ClientAuth:   tls.NoClientCert,
	}, nil
}

// selfSignedCert creates a short-lived ECDSA certificate for QUIC/HTTP3.
func selfSignedCert() (*tls.Certificate, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   "freight-server",
			Organization: []string{"freight"},
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1")},
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  privateKey,
		Leaf:        cert,
	}, nil
}
