package service

import (
	"time"

	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	// A DeliveryReport sums up one scheduled-delivery run. Per-row failures
	// are reported, never silently dropped.
	DeliveryReport struct {
		Processed int `json:"processed"`
		Failed    int `json:"failed"`
	}

	// A DeliverService scans due scheduled entries and marks them
	// delivered. It is meant to be triggered by an external scheduler.
	DeliverService struct {
		db database.Client
	}
)

// NewDeliver returns a new DeliverService.
func NewDeliver(db database.Client) *DeliverService {
	return &DeliverService{db: db}
}

// Run marks all due entries as delivered.
// TODO: notify the entry's recipients through a mail provider once one is
// wired in the configuration.
func (s *DeliverService) Run(now time.Time) (*DeliveryReport, error) {
	due, err := s.db.FindDueEntries(now)
	if err != nil {
		return nil, errors.Wrap(err, "could not scan scheduled entries")
	}

	report := &DeliveryReport{}
	for _, entry := range due {
		if err := s.deliver(entry); err != nil {
			logrus.WithError(err).WithField("entry", entry.ID).Error("could not mark entry delivered")
			report.Failed++
			continue
		}
		report.Processed++
	}
	return report, nil
}

func (s *DeliverService) deliver(entry *model.Entry) error {
	entry.Delivered = true
	return s.db.Save(entry)
}
