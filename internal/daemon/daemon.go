// Package daemon runs the autosave loop: it watches the editor's flow
// file and persists a snapshot after every settled edit, optionally on
// a cron schedule as well.
package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"flowvault/internal/autosave"
	"flowvault/internal/flow"
	"flowvault/internal/watch"
	logx "flowvault/pkg/logx"
)

type Config struct {
	FlowPath    string
	Debounce    time.Duration
	MinInterval time.Duration
	Schedule    string // cron spec or @every; empty disables the schedule
}

type Daemon struct {
	cfg Config
	svc *autosave.Service
	log logx.Logger

	limiter *rate.Limiter
}

func New(cfg Config, svc *autosave.Service, log logx.Logger) *Daemon {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 2 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Daemon{
		cfg: cfg,
		svc: svc,
		log: log,
		// One save per MinInterval, no bursts: editors emit event storms
		// on every keystroke-triggered autosave.
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}
}

// Run blocks until ctx is done. Under a systemd unit it reports
// readiness and stopping; elsewhere sd_notify is a silent no-op.
func (d *Daemon) Run(ctx context.Context) error {
	if strings.TrimSpace(d.cfg.FlowPath) == "" {
		return fmt.Errorf("watch.flow_path is required")
	}

	var c *cron.Cron
	if spec := strings.TrimSpace(d.cfg.Schedule); spec != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		c = cron.New(cron.WithParser(parser))
		if _, err := c.AddFunc(spec, func() { d.snapshot(ctx, "schedule") }); err != nil {
			return fmt.Errorf("watch.schedule: %w", err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		d.log.Info("periodic snapshots scheduled", logx.String("spec", spec))
	}

	_, _ = sd.SdNotify(false, sd.SdNotifyReady)
	defer func() { _, _ = sd.SdNotify(false, sd.SdNotifyStopping) }()

	d.log.Info("watching flow file",
		logx.String("path", d.cfg.FlowPath),
		logx.Duration("debounce", d.cfg.Debounce),
		logx.Duration("min_interval", d.cfg.MinInterval),
	)

	w := watch.New(d.cfg.FlowPath, d.cfg.Debounce, d.log, func() {
		d.snapshot(ctx, "change")
	})
	return w.Run(ctx)
}

func (d *Daemon) snapshot(ctx context.Context, trigger string) {
	if !d.limiter.Allow() {
		d.log.Debug("snapshot skipped (rate limited)", logx.String("trigger", trigger))
		return
	}
	f, err := flow.Load(d.cfg.FlowPath)
	if err != nil {
		// The editor may be mid-write; the next event will retry.
		d.log.Warn("flow file unreadable; skipping snapshot", logx.Err(err))
		return
	}
	d.svc.SaveAutoSnapshot(ctx, f.Nodes, f.Edges)
	d.log.Info("snapshot taken",
		logx.String("trigger", trigger),
		logx.Int("nodes", len(f.Nodes)),
		logx.Int("edges", len(f.Edges)),
	)
}
