package monitoring

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// OrphanGracePeriod protects uploads whose post has not been committed yet.
const OrphanGracePeriod = 10 * time.Minute

// ImageRefLister reports the image references bound to posts.
type ImageRefLister interface {
	ImageRefs(ctx context.Context) (map[string]struct{}, error)
}

// ImageReconciler removes stored images that no post references.
type ImageReconciler interface {
	Reconcile(ctx context.Context, referenced map[string]struct{}, grace time.Duration) (int, error)
}

// Scheduler periodically sweeps the image directory for orphaned artifacts
// left behind by failed requests or failed releases.
type Scheduler struct {
	posts   ImageRefLister
	images  ImageReconciler
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler creates a scheduler running the sweep on the given cron spec
// (standard five-field syntax or descriptors such as "@every 1h").
func NewScheduler(spec string, posts ImageRefLister, images ImageReconciler) (*Scheduler, error) {
	s := &Scheduler{
		posts:   posts,
		images:  images,
		cron:    cron.New(),
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the scheduler in the background.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting background image reconciler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background image reconciler.")
}

// RunOnce performs a single sweep and returns the number of files removed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	refs, err := s.posts.ImageRefs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reconciler: failed to list image references")
		return 0
	}
	removed, err := s.images.Reconcile(ctx, refs, OrphanGracePeriod)
	if err != nil {
		log.Error().Err(err).Msg("Reconciler: sweep failed")
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Reconciler: removed orphaned images")
	}
	return removed
}
