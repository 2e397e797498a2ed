package status

import (
	"context"
	"os/exec"
	"time"

	"mp3bot/m/v2/app/db"
	"mp3bot/m/v2/app/db/redis"
	"mp3bot/m/v2/app/state"

	"github.com/sirupsen/logrus"
)

type SystemStatus struct {
	Store    *Status     `json:"store"`
	Redis    *Status     `json:"redis"`
	AI       *Status     `json:"ai"`
	Payments *Status     `json:"payments"`
	YtDlp    *Status     `json:"yt_dlp"`
	FFMPEG   *Status     `json:"ffmpeg"`
	Time     time.Time   `json:"time"`
	Usage    SystemUsage `json:"usage"`
}

type SystemUsage struct {
	TotalConversions    int `json:"total_conversions"`
	TotalUsers          int `json:"total_users"`
	ActiveSubscriptions int `json:"active_subscriptions"`
	PendingPayments     int `json:"pending_payments"`
	Errors              int `json:"errors"`
}

// Status
type Status struct {
	Available bool `json:"available"`
}

type AIChecker interface {
	IsAvailable(ctx context.Context) bool
}

// SystemStatusHandler is a handler for system status
type SystemStatusHandler struct {
	Store    db.Store
	Redis    redis.Client
	AI       AIChecker
	State    *state.State
	Binaries Binaries
	lookPath func(file string) (string, error)
}

type Binaries struct {
	YtDlp  string
	FFMPEG string
}

// New creates a new instance of SystemStatusHandler; redis and ai may be nil.
func New(st *state.State, redis redis.Client, ai AIChecker, binaries Binaries) *SystemStatusHandler {
	return &SystemStatusHandler{
		Store:    st.Store(),
		Redis:    redis,
		AI:       ai,
		State:    st,
		Binaries: binaries,
		lookPath: exec.LookPath,
	}
}

func (h *SystemStatusHandler) WithLookPath(lookPath func(file string) (string, error)) *SystemStatusHandler {
	h.lookPath = lookPath
	return h
}

// GetSystemStatus gets a status of the system
func (h *SystemStatusHandler) GetSystemStatus() SystemStatus {
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()

	storeAvailable := false
	if err := h.Store.Ping(ctxPing); err != nil {
		logrus.WithError(err).Warn("GetSystemStatus: failed to ping store")
	} else {
		storeAvailable = true
	}

	status := SystemStatus{
		Store:    &Status{Available: storeAvailable},
		Redis:    &Status{Available: h.Redis != nil && h.Redis.Ping(ctxPing).Err() == nil},
		AI:       &Status{Available: h.AI != nil && h.AI.IsAvailable(ctxPing)},
		Payments: &Status{Available: h.State.Payments.Configured()},
		YtDlp:    &Status{Available: h.toolAvailable(h.Binaries.YtDlp)},
		FFMPEG:   &Status{Available: h.toolAvailable(h.Binaries.FFMPEG)},
		Time:     time.Now(),
	}

	stats := h.State.Usage.Snapshot()
	status.Usage = SystemUsage{
		TotalConversions:    stats.TotalConversions,
		TotalUsers:          len(stats.UniqueUsers),
		ActiveSubscriptions: h.State.Ledger.ActiveCount(),
		PendingPayments:     h.State.Payments.PendingCount(),
		Errors:              stats.Errors,
	}
	return status
}

func (h *SystemStatusHandler) toolAvailable(binary string) bool {
	if binary == "" {
		return false
	}
	_, err := h.lookPath(binary)
	if err != nil {
		logrus.WithError(err).Warnf("GetSystemStatus: %s not found", binary)
		return false
	}
	return true
}
