package keygen

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mitum-deploy/keygen/keygen/storage"
)

// Server exposes the runs in a registry over HTTP so deployment tooling
// can read node public keys and addresses. Private keys are never stored
// in the registry and so are never served.
type Server struct {
	httpServer *http.Server
	db         storage.DB
	logger     *slog.Logger
}

type RunResponse struct {
	Id        string            `json:"id"`
	CreatedAt int64             `json:"created_at"`
	OutputDir string            `json:"output_dir"`
	Fallback  bool              `json:"fallback"`
	Summary   GenerationSummary `json:"summary"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func NewServer(db storage.DB, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{db: db, logger: logger}
	server.setupHttpServer(addr)
	return server
}

func (s *Server) setupHttpServer(addr string) {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v1/runs", s.getRuns).Methods(http.MethodGet)
	r.HandleFunc("/v1/runs/latest", s.getLatestRun).Methods(http.MethodGet)
	r.HandleFunc("/v1/runs/{id}", s.getRun).Methods(http.MethodGet)
	r.HandleFunc("/v1/runs/{id}/genesis", s.getGenesisAccount).Methods(http.MethodGet)
	r.HandleFunc("/v1/inventory", s.getInventory).Methods(http.MethodGet)

	return r
}

func (s *Server) Start() error {
	s.logger.Info("inventory server listening on: " + s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeResponse(rw http.ResponseWriter, req *http.Request, response any) {
	jsonRes, err := json.Marshal(response)
	if err != nil {
		s.writeErr(rw, req, http.StatusInternalServerError, errors.New("unable to encode response"))
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.Write(jsonRes)
}

func (s *Server) writeErr(rw http.ResponseWriter, req *http.Request, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", req.URL.Path), slog.String("error", err.Error()))
	}

	jsonErr, _ := json.Marshal(ErrorResponse{Detail: err.Error()})
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	rw.Write(jsonErr)
}

func (s *Server) writeRunErr(rw http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, storage.ErrRunNotFound) {
		s.writeErr(rw, req, http.StatusNotFound, err)
		return
	}
	s.writeErr(rw, req, http.StatusInternalServerError, err)
}

func (s *Server) runResponse(run storage.Run) (RunResponse, error) {
	summary, err := DecodeSummary(run)
	if err != nil {
		return RunResponse{}, err
	}
	return RunResponse{
		Id:        run.Id,
		CreatedAt: run.CreatedAt,
		OutputDir: run.OutputDir,
		Fallback:  run.Fallback,
		Summary:   summary,
	}, nil
}

func (s *Server) getRuns(rw http.ResponseWriter, req *http.Request) {
	runs, err := s.db.GetRuns()
	if err != nil {
		s.writeErr(rw, req, http.StatusInternalServerError, err)
		return
	}

	response := make([]RunResponse, len(runs))
	for i, run := range runs {
		response[i], err = s.runResponse(run)
		if err != nil {
			s.writeErr(rw, req, http.StatusInternalServerError, err)
			return
		}
	}

	s.writeResponse(rw, req, response)
}

func (s *Server) getRun(rw http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	run, err := s.db.GetRun(id)
	if err != nil {
		s.writeRunErr(rw, req, err)
		return
	}

	response, err := s.runResponse(run)
	if err != nil {
		s.writeErr(rw, req, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(rw, req, response)
}

func (s *Server) getLatestRun(rw http.ResponseWriter, req *http.Request) {
	run, err := s.db.LatestRun()
	if err != nil {
		s.writeRunErr(rw, req, err)
		return
	}

	response, err := s.runResponse(run)
	if err != nil {
		s.writeErr(rw, req, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(rw, req, response)
}

func (s *Server) getGenesisAccount(rw http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	run, err := s.db.GetRun(id)
	if err != nil {
		s.writeRunErr(rw, req, err)
		return
	}

	summary, err := DecodeSummary(run)
	if err != nil {
		s.writeErr(rw, req, http.StatusInternalServerError, err)
		return
	}
	if summary.GenesisAccount == nil {
		s.writeErr(rw, req, http.StatusNotFound, errors.New("run has no genesis account"))
		return
	}

	s.writeResponse(rw, req, summary.GenesisAccount)
}

// getInventory serves the Ansible inventory for the latest run.
// An empty registry yields an empty inventory, not an error.
func (s *Server) getInventory(rw http.ResponseWriter, req *http.Request) {
	run, err := s.db.LatestRun()
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			s.writeResponse(rw, req, EmptyInventory())
			return
		}
		s.writeErr(rw, req, http.StatusInternalServerError, err)
		return
	}

	summary, err := DecodeSummary(run)
	if err != nil {
		s.writeErr(rw, req, http.StatusInternalServerError, err)
		return
	}
	s.writeResponse(rw, req, BuildInventory(summary))
}
