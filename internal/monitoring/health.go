package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thedatamates/mistral.rs/internal/logger"
	"github.com/thedatamates/mistral.rs/internal/quant"
)

// HealthStatus reports the kernel stack's view of the host.
type HealthStatus struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Uptime    string     `json:"uptime"`
	System    SystemInfo `json:"system"`
	Kernels   KernelInfo `json:"kernels"`
}

// SystemInfo contains host-level information.
type SystemInfo struct {
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
}

// KernelInfo reports backend and precision state.
type KernelInfo struct {
	ScalarAvailable bool `json:"scalar_available"`
	AccelAvailable  bool `json:"accel_available"`
	MatMulViaF16    bool `json:"matmul_via_f16"`
}

// Server exposes /healthz and /metrics.
type Server struct {
	started time.Time
	mux     *http.ServeMux
}

func NewServer() *Server {
	s := &Server{started: time.Now(), mux: http.NewServeMux()}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving the monitoring endpoints.
func (s *Server) ListenAndServe(addr string) error {
	logger.Log.Component("monitoring").Info("monitoring endpoints up", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.started).String(),
		System: SystemInfo{
			GoVersion: runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			NumCPU:    runtime.NumCPU(),
		},
		Kernels: KernelInfo{
			ScalarAvailable: quant.Scalar.Available(),
			AccelAvailable:  quant.Accel.Available(),
			MatMulViaF16:    quant.MatMulViaF16(),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
