package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/vitalwatch/internal/aggregate"
	"github.com/speedwagon-io/vitalwatch/internal/config"
	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
	"github.com/speedwagon-io/vitalwatch/internal/model"
	"github.com/speedwagon-io/vitalwatch/internal/poller"
	"github.com/speedwagon-io/vitalwatch/internal/publish"
)

const (
	ViewList      = "list"
	ViewAnalytics = "analytics"
	ViewDetail    = "detail"
)

type SnapshotView = poller.Poller[*model.Snapshot]

type DetailView = poller.Keyed[string, *model.Detail]

// Manager owns the long-lived roster views and hands every new view state to
// the publisher.
type Manager struct {
	log       *slog.Logger
	cfg       *config.ViewsConfig
	source    Source
	publisher publish.Publisher
	detail    *DetailCollector
	views     map[string]*SnapshotView
	order     []string
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewManager(
	log *slog.Logger,
	cfg *config.ViewsConfig,
	source Source,
	publisher publish.Publisher,
) *Manager {
	m := &Manager{
		log:       log,
		cfg:       cfg,
		source:    source,
		publisher: publisher,
		detail:    NewDetailCollector(log, source, cfg.HistoryLimit),
		views:     make(map[string]*SnapshotView),
		stopCh:    make(chan struct{}),
	}

	roster := NewRosterCollector(log, source, cfg.FetchTimeout, 0)
	trends := NewRosterCollector(log, source, cfg.FetchTimeout, cfg.HistoryLimit)
	m.addView(ViewList, cfg.List.Interval, roster.Collect)
	m.addView(ViewAnalytics, cfg.Analytics.Interval, trends.Collect)

	return m
}

func (m *Manager) addView(name string, interval time.Duration, fetch poller.FetchFunc[*model.Snapshot]) {
	m.views[name] = poller.New(m.log, name, interval, fetch)
	m.order = append(m.order, name)
}

// Start activates every roster view and blocks until ctx is done or Stop is
// called. The views are deactivated before it returns.
func (m *Manager) Start(ctx context.Context) {
	m.log.Info("starting view manager",
		slog.String("source", m.source.Name()),
		slog.Int("views", len(m.views)),
	)

	for _, name := range m.order {
		view := m.views[name]

		if m.publisher != nil {
			updates, unsubscribe := view.Store().Subscribe()
			m.wg.Add(1)
			go m.forward(ctx, name, updates)
			defer unsubscribe()
		}

		view.Start(ctx)
	}

	select {
	case <-ctx.Done():
		m.log.Info("context cancelled, stopping manager")
	case <-m.stopCh:
		m.log.Info("stop signal received, stopping manager")
	}

	for _, name := range m.order {
		m.views[name].Stop()
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()

	if err := m.source.Close(); err != nil {
		m.log.Error("failed to close source", sl.Err(err))
	}
}

func (m *Manager) forward(ctx context.Context, name string, updates <-chan poller.State[*model.Snapshot]) {
	defer m.wg.Done()

	for st := range updates {
		frame := SnapshotFrame(name, st)

		publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err := m.publisher.Publish(publishCtx, frame)
		cancel()

		if err != nil {
			m.log.Error("failed to publish frame",
				slog.String("view", name),
				slog.Uint64("cycle", frame.Cycle),
				sl.Err(err),
			)
			continue
		}

		m.log.Debug("frame published",
			slog.String("view", name),
			slog.String("phase", frame.Phase),
		)
	}
}

func (m *Manager) View(name string) (*SnapshotView, bool) {
	v, ok := m.views[name]
	return v, ok
}

func (m *Manager) ViewNames() []string {
	return append([]string(nil), m.order...)
}

// Refresh is the manual retry of a view.
func (m *Manager) Refresh(name string) error {
	view, ok := m.views[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	return view.Refresh()
}

// Ready reports whether every roster view finished at least one cycle.
func (m *Manager) Ready() bool {
	for _, view := range m.views {
		if view.Store().Get().Cycle == 0 {
			return false
		}
	}
	return true
}

// NewDetailView returns a patient detail view for one session. The caller
// activates it per patient and deactivates it when the session ends.
func (m *Manager) NewDetailView() *DetailView {
	return poller.NewKeyed(m.log, ViewDetail, m.cfg.Detail.Interval, m.FetchDetail)
}

// FetchDetail loads a single patient annotated for display.
func (m *Manager) FetchDetail(ctx context.Context, patientID string) (*model.Detail, error) {
	d, err := m.detail.Collect(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return aggregate.DetailView(d, m.cfg.DetailHistory), nil
}

// SnapshotFrame renders a roster view state into a frame.
func SnapshotFrame(view string, st poller.State[*model.Snapshot]) *model.Frame {
	frame := newFrame(view, st.Phase, st.Cycle, st.UpdatedAt, st.Err)

	if st.Phase != poller.PhaseReady || st.Data == nil {
		return frame
	}

	frame.Summary = aggregate.Summarize(st.Data)
	frame.Cards = aggregate.Cards(st.Data)

	if view == ViewAnalytics {
		frame.Trends = aggregate.Trends(st.Data)
		return frame
	}

	frame.Snapshot = st.Data
	frame.Alerts = aggregate.Alerts(st.Data)

	return frame
}

func DetailFrame(st poller.State[*model.Detail]) *model.Frame {
	frame := newFrame(ViewDetail, st.Phase, st.Cycle, st.UpdatedAt, st.Err)
	if st.Phase == poller.PhaseReady {
		frame.Detail = st.Data
	}
	return frame
}

func newFrame(view string, phase poller.Phase, cycle uint64, updatedAt time.Time, err error) *model.Frame {
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	frame := model.NewFrame(view, string(phase), cycle, updatedAt)
	if err != nil {
		frame.Error = err.Error()
	}
	return frame
}
