package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/audiolibrelab/fieldcapture/internal/schedule"
)

const streamPrefix = "/api/files/stream/"

// StatusSource exposes the live state of a capture run.
type StatusSource interface {
	Status() schedule.Status
}

// FileSource names the directory whose takes are served.
type FileSource interface {
	Directory() string
}

// StaticDir serves a fixed directory.
type StaticDir string

func (d StaticDir) Directory() string { return string(d) }

// Server is a read-only HTTP view of captures: run status and the WAV files
// written so far.
type Server struct {
	addr    string
	files   FileSource
	status  StatusSource
	logger  *slog.Logger
	started time.Time
}

// StatusResponse represents the JSON response for the status endpoint
type StatusResponse struct {
	Status    schedule.Status `json:"status"`
	Message   string          `json:"message"`
	Directory string          `json:"directory,omitempty"`
	Uptime    string          `json:"uptime"`
}

// FileInfo contains information about an audio file
type FileInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	SizeHuman    string    `json:"size_human"`
	ModTime      time.Time `json:"mod_time"`
	ModTimeHuman string    `json:"mod_time_human"`
	StreamURL    string    `json:"stream_url"`
}

// FilesResponse represents the JSON response for the files endpoint
type FilesResponse struct {
	Files      []FileInfo `json:"files"`
	TotalCount int        `json:"total_count"`
	Directory  string     `json:"directory"`
}

// New creates a server on addr. status may be nil when no run is active.
func New(addr string, files FileSource, status StatusSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, files: files, status: status, logger: logger, started: time.Now()}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/files", s.handleFiles)
	mux.HandleFunc(streamPrefix, s.handleFileStream)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Server shutdown failed", "error", err)
		}
	}()

	_, port, err := net.SplitHostPort(s.addr)
	if err != nil {
		port = s.addr
	}
	s.logger.Info("Starting status server",
		"addr", s.addr,
		"local_url", fmt.Sprintf("http://%s:%s", getLocalIP(), port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", port))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// handleStatus returns the current run state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "path", r.URL.Path)
		return
	}

	var status schedule.Status
	if s.status != nil {
		status = s.status.Status()
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    status,
		Message:   statusMessage(status),
		Directory: s.files.Directory(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleFiles returns the list of WAV files under the served directory
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "path", r.URL.Path)
		return
	}

	dir := s.files.Directory()
	if dir == "" {
		writeJSON(w, http.StatusOK, FilesResponse{Files: []FileInfo{}})
		return
	}

	files, err := listTakes(dir)
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to read output directory: %v", err), "directory", dir)
		return
	}

	writeJSON(w, http.StatusOK, FilesResponse{
		Files:      files,
		TotalCount: len(files),
		Directory:  dir,
	})
}

// handleFileStream streams one WAV file, with range support
func (s *Server) handleFileStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, streamPrefix)
	filePath, ok := resolveTake(s.files.Directory(), name)
	if !ok {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "File not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error accessing file", http.StatusInternalServerError)
		}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func listTakes(dir string) ([]FileInfo, error) {
	files := []FileInfo{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".wav") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		name := filepath.ToSlash(rel)
		files = append(files, FileInfo{
			Name:         name,
			Size:         info.Size(),
			SizeHuman:    formatBytes(info.Size()),
			ModTime:      info.ModTime(),
			ModTimeHuman: info.ModTime().Format(schedule.DateTimeLayout),
			StreamURL:    streamPrefix + name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// newest first
	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// resolveTake maps a URL name onto a WAV file inside dir.
func resolveTake(dir, name string) (string, bool) {
	if dir == "" || name == "" || strings.Contains(name, "\\") {
		return "", false
	}
	cleaned := path.Clean("/" + name)[1:]
	if cleaned != name || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", false
	}
	if !strings.EqualFold(path.Ext(cleaned), ".wav") {
		return "", false
	}
	return filepath.Join(dir, filepath.FromSlash(cleaned)), true
}

func statusMessage(status schedule.Status) string {
	switch status.State {
	case schedule.StateWaiting:
		return fmt.Sprintf("Waiting for session %d of %d at %s", status.Session, status.TotalSessions, status.NextStart.Format(schedule.ClockLayout))
	case schedule.StateCapturing:
		return fmt.Sprintf("Recording session %d of %d", status.Session, status.TotalSessions)
	case schedule.StateCompleted:
		return fmt.Sprintf("Finished: %d of %d sessions captured", status.Completed, status.TotalSessions)
	case schedule.StateAborted:
		return fmt.Sprintf("Stopped after %d captured sessions", status.Completed)
	case schedule.StateScheduled:
		return "Scheduled"
	default:
		return "No active run"
	}
}

// sendErrorResponse logs the error and sends a JSON error response to the client
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...any) {
	logFields := []any{"error_message", errorMsg, "status_code", statusCode}
	logFields = append(logFields, logContext...)
	s.logger.Error("Sending error response to client", logFields...)

	writeJSON(w, statusCode, map[string]any{
		"success": false,
		"error":   errorMsg,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
