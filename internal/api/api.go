package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/charger"
)

// web form requests are capped well below the serial limit; a browser
// user has no business switching the load off for hours
const maxWebToggleSeconds = 300

// Server is the thin web surface over the controller snapshot: the
// dashboard page, the JSON document and the two form posts.
type Server struct {
	ctrl *charger.Controller
}

func NewServer(ctrl *charger.Controller) *Server {
	return &Server{ctrl: ctrl}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/update", s.handleUpdate)
	mux.HandleFunc("/toggle-load", s.handleToggleLoad)
	return mux
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting web interface")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, s.ctrl.Snapshot()); err != nil {
		log.Error().Err(err).Msg("Dashboard render failed")
	}
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := s.ctrl.SnapshotJSON()
	if err != nil {
		http.Error(w, "Could not serialize snapshot", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(data))
}

// form field name -> SET parameter
var formParams = []struct {
	field string
	param string
}{
	{"batteryCapacity", "BATTERY_CAPACITY"},
	{"thresholdPercentage", "THRESHOLD_PERCENTAGE"},
	{"maxAllowedCurrent", "MAX_CURRENT"},
	{"bulkVoltage", "BULK_VOLTAGE"},
	{"absorptionVoltage", "ABSORPTION_VOLTAGE"},
	{"floatVoltage", "FLOAT_VOLTAGE"},
	{"isLithium", "IS_LITHIUM"},
	{"useFuenteDC", "USE_FUENTE_DC"},
	{"fuenteDC_Amps", "FUENTE_DC_AMPS"},
	{"factorDivider", "FACTOR_DIVIDER"},
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}

	var errs []string
	for _, fp := range formParams {
		value := strings.TrimSpace(r.PostFormValue(fp.field))
		if value == "" {
			continue
		}
		if _, err := s.ctrl.SetParam(fp.param, value); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		http.Error(w, strings.Join(errs, "; "), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleToggleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}

	seconds, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("seconds")), 10, 64)
	if err != nil || seconds < 1 || seconds > maxWebToggleSeconds {
		http.Error(w, fmt.Sprintf("seconds must be in [1, %d]", maxWebToggleSeconds), http.StatusBadRequest)
		return
	}

	s.ctrl.ToggleLoad(seconds)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
