package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"photodesk/internal/archive"
	"photodesk/internal/calendar"
	"photodesk/internal/calsync"
	"photodesk/internal/config"
	"photodesk/internal/delivery"
	"photodesk/internal/exifcheck"
	"photodesk/internal/folder"
	"photodesk/internal/journal"
	"photodesk/internal/ledger"
	"photodesk/internal/metrics"
	"photodesk/internal/notifications"
	"photodesk/internal/organizer"
	"photodesk/internal/photos"
	"photodesk/internal/publish"
	"photodesk/internal/runlock"
	"photodesk/internal/storage"
)

// Build wires production components for the requested phases. The lock and
// the journal are required; a phase whose configuration is incomplete is
// recorded in Unavailable instead of failing the build. The returned close
// function releases the journal and any network clients.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, phases []Phase) (*Components, func() error, error) {
	if len(phases) == 0 {
		phases = AllPhases()
	}
	var closers []io.Closer
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i].Close())
		}
		return errors.Join(errs...)
	}

	lock, err := runlock.New(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("run lock: %w", err)
	}
	if c, ok := lock.(io.Closer); ok {
		closers = append(closers, c)
	}

	store, err := journal.Open(cfg.HistoryPath())
	if err != nil {
		_ = closeAll()
		return nil, nil, fmt.Errorf("open run journal: %w", err)
	}
	closers = append(closers, store)

	c := &Components{
		Lock:        lock,
		Journal:     store,
		Notifier:    notifications.NewService(cfg),
		Metrics:     metrics.New(),
		Unavailable: make(map[Phase]error),
	}
	b := builder{ctx: ctx, cfg: cfg, logger: logger, c: c, journal: store}
	for _, phase := range phases {
		if err := b.wire(phase); err != nil {
			c.Unavailable[phase] = err
		}
	}
	return c, closeAll, nil
}

type builder struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *slog.Logger
	c       *Components
	journal *journal.Store

	source calendar.Source
	ledger ledger.Ledger
	store  storage.Store
}

func (b *builder) wire(phase Phase) error {
	switch phase {
	case PhaseOrganize:
		source, err := b.calendarSource()
		if err != nil {
			return err
		}
		b.c.Organizer = organizer.New(b.cfg, source, b.logger)
	case PhaseCalendarSync:
		source, err := b.calendarSource()
		if err != nil {
			return err
		}
		l, err := b.ledgerClient()
		if err != nil {
			return err
		}
		b.c.Syncer = calsync.New(b.cfg, source, l, b.logger)
	case PhaseDeliverBasic, PhaseDeliverPremium:
		if b.c.Deliverer != nil {
			return nil
		}
		if err := b.cfg.DeliveryReady(); err != nil {
			return err
		}
		pipeline, err := b.pipeline()
		if err != nil {
			return err
		}
		b.c.Deliverer = pipeline
	case PhaseStorageCleanup:
		store, err := b.objectStore()
		if err != nil {
			return err
		}
		b.c.Cleaner = &storage.Cleaner{
			Store:         store,
			Prefix:        b.cfg.Storage.KeyPrefix,
			RetentionDays: b.cfg.Storage.RetentionDays,
			Logger:        b.logger,
		}
	default:
		return fmt.Errorf("unknown phase %q", phase)
	}
	return nil
}

func (b *builder) pipeline() (*delivery.Pipeline, error) {
	l, err := b.ledgerClient()
	if err != nil {
		return nil, err
	}
	store, err := b.objectStore()
	if err != nil {
		return nil, err
	}
	cfg := b.cfg
	resolver := &folder.Resolver{
		Roots:           cfg.DeliveryRoots(),
		RetouchedSubdir: cfg.Delivery.RetouchedSubdir,
		ExportSubdir:    cfg.Delivery.ExportSubdir,
		SkipPrefixes:    cfg.Delivery.SkipPrefixes,
		Logger:          b.logger,
	}
	publisher := publish.NewClient(cfg.Publish.APIURL, cfg.Publish.APIKey, seconds(cfg.Publish.RequestTimeout))
	return delivery.New(cfg, delivery.Dependencies{
		Resolver:  resolver,
		Counter:   delivery.CounterFunc(photos.Count),
		Validator: exifcheck.New(cfg.Delivery.ExifThreshold, b.logger),
		Packager:  delivery.PackagerFunc(archive.Create),
		Uploader:  store,
		Publisher: publisher,
		Ledger:    l,
		Notifier:  b.c.Notifier,
		Recorder:  b.journal,
		Metrics:   b.c.Metrics,
	}, b.logger), nil
}

func (b *builder) calendarSource() (calendar.Source, error) {
	if b.source != nil {
		return b.source, nil
	}
	if err := b.cfg.CalendarReady(); err != nil {
		return nil, err
	}
	b.source = calendar.NewICSSource(b.cfg.Calendar.ICSURL, seconds(b.cfg.Calendar.RequestTimeout), b.logger)
	return b.source, nil
}

func (b *builder) ledgerClient() (ledger.Ledger, error) {
	if b.ledger != nil {
		return b.ledger, nil
	}
	l, err := ledger.New(b.ctx, b.cfg, b.logger)
	if err != nil {
		return nil, err
	}
	b.ledger = l
	return l, nil
}

func (b *builder) objectStore() (storage.Store, error) {
	if b.store != nil {
		return b.store, nil
	}
	store, err := storage.New(b.ctx, b.cfg, b.logger)
	if err != nil {
		return nil, err
	}
	b.store = store
	return store, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
