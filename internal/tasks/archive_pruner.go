package tasks

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "0 3 * * *"

type ArchivePruneRepo interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArchivePruner deletes archived messages older than the retention window
// once a night.
type ArchivePruner struct {
	repo      ArchivePruneRepo
	retention time.Duration
	now       func() time.Time
	cron      *cron.Cron
}

func NewArchivePruner(repo ArchivePruneRepo, retentionDays int) *ArchivePruner {
	return &ArchivePruner{
		repo:      repo,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		cron:      cron.New(),
	}
}

func (p *ArchivePruner) Start(schedule string) error {
	if _, err := p.cron.AddFunc(schedule, p.RunOnce); err != nil {
		log.Printf("[WORKER] Error scheduling archive pruning: %v", err)
		return err
	}

	p.cron.Start()
	log.Printf("[WORKER] Archive pruning scheduled (%s), retention %s", schedule, p.retention)
	return nil
}

func (p *ArchivePruner) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	cutoff := p.now().Add(-p.retention)
	n, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[WORKER] Archive pruning failed: %v", err)
		return
	}
	log.Printf("[WORKER] Pruned %d archived messages older than %s", n, cutoff.Format(time.RFC3339))
}

// Stop waits for a running prune to finish.
func (p *ArchivePruner) Stop() {
	<-p.cron.Stop().Done()
}
