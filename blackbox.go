package main

import (
	"context"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/edaniels/golog"

	"github.com/wheelworks/godrivebot/drive"
)

const BLACKBOX_INTERVAL = time.Second

// BlackboxRecord is a rolling snapshot of the drive, overwritten in place.
// After a crash or an unexpected watchdog stop it shows what the controller
// was last commanding.
type BlackboxRecord struct {
	ID         int `storm:"id"`
	Snapshot   drive.Snapshot
	RecordedAt time.Time
}

func openDb(dbFile string) (db *storm.DB, err error) {
	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	if err = db.Init(&BlackboxRecord{}); err != nil {
		db.Close()
		return nil, err
	}

	return
}

func recordBlackbox(ctx context.Context, db *storm.DB, d *drive.Drive, logger golog.Logger) {
	ticker := time.NewTicker(BLACKBOX_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			rec := &BlackboxRecord{
				ID:         1,
				Snapshot:   d.State(),
				RecordedAt: time.Now(),
			}
			if err := db.Save(rec); err != nil {
				logger.Errorw("unable to record blackbox snapshot", "error", err)
			}
		}
	}
}
