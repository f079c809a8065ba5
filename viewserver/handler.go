package viewserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ridge/must/v2"
	"github.com/ridge/redchat/kafka"
	"github.com/ridge/redchat/message"
	"github.com/ridge/redchat/scan"
	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
	"time"
)

// MaxScanTimeout caps the timeout a client may request for a listing
const MaxScanTimeout = time.Minute

// Config configures the view API
type Config struct {
	Client kafka.Client

	// Format is used unless a request specifies one
	Format message.Format

	// Scan configures listings; the timeout can be overridden per request
	Scan scan.Config

	// Live configures the WebSocket feed
	Live LiveConfig
}

// Handler returns the HTTP handler of the view API:
//
//	GET /topics/{topic}/messages?format=json&timeout=2s
//	GET /topics/{topic}/live?format=json
func Handler(config Config) http.Handler {
	h := handler{config: config}

	router := mux.NewRouter()
	router.HandleFunc("/topics/{topic}/messages", h.messages).Methods(http.MethodGet)
	router.HandleFunc("/topics/{topic}/live", h.live).Methods(http.MethodGet)

	return logRequests(recoverPanics(cors(router)))
}

type handler struct {
	config Config
}

type entryJSON struct {
	Offset     int64     `json:"offset"`
	Time       time.Time `json:"time"`
	Username   string    `json:"username"`
	Text       string    `json:"text"`
	ReplacedBy *int64    `json:"replacedBy,omitempty"`
}

type failureJSON struct {
	Offset int64  `json:"offset"`
	Error  string `json:"error"`
}

type listingJSON struct {
	State    string        `json:"state"`
	Entries  []entryJSON   `json:"entries"`
	Failures []failureJSON `json:"failures"`
	Error    string        `json:"error,omitempty"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// request parses the parameters common to all endpoints
func (h handler) request(r *http.Request) (topic string, format message.Format, err error) {
	topic = mux.Vars(r)["topic"]
	if err := kafka.ValidateTopicName(topic); err != nil {
		return "", 0, err
	}
	format = h.config.Format
	if f := r.URL.Query().Get("format"); f != "" {
		if format, err = message.ParseFormat(f); err != nil {
			return "", 0, err
		}
	}
	return topic, format, nil
}

func (h handler) messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := tlog.Get(ctx)

	topic, format, err := h.request(r)
	if err != nil {
		writeJSON(logger, w, r, errorJSON{Error: err.Error()}, http.StatusBadRequest)
		return
	}
	config := h.config.Scan
	if t := r.URL.Query().Get("timeout"); t != "" {
		timeout, err := time.ParseDuration(t)
		if err != nil || timeout <= 0 || timeout > MaxScanTimeout {
			writeJSON(logger, w, r, errorJSON{Error: fmt.Sprintf("invalid timeout %q (positive duration up to %s expected)", t, MaxScanTimeout)}, http.StatusBadRequest)
			return
		}
		config.Timeout = timeout
	}

	res, err := scan.Run(ctx, h.config.Client, topic, format, config)
	if err != nil && ctx.Err() != nil {
		return // client is gone
	}

	listing := listingJSON{
		State:    res.State.String(),
		Entries:  []entryJSON{},
		Failures: []failureJSON{},
	}
	for _, e := range res.View.Entries() {
		listing.Entries = append(listing.Entries, entryJSON{
			Offset:     e.Offset,
			Time:       e.Time,
			Username:   e.Username,
			Text:       e.Text,
			ReplacedBy: e.ReplacedBy,
		})
	}
	for _, f := range res.Failures {
		listing.Failures = append(listing.Failures, failureJSON{Offset: f.Offset, Error: f.Err.Error()})
	}

	code := http.StatusOK
	if err != nil {
		listing.Error = err.Error()
		code = http.StatusBadGateway
	}
	writeJSON(logger, w, r, listing, code)
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, r *http.Request, res any, code int) {
	body := must.OK1(json.Marshal(res))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Vary", "Accept-Encoding")
	if len(body) >= minGzipSize && acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		body = gzipBytes(body)
	}
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		logger.Debug("Failed to write response to client", zap.Error(err))
	}
}
