package settings

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
)

var ErrNotFound = core.NewNotFoundError(errors.New("settings not found"))

type (
	// Repository stores the settings singleton.
	Repository interface {
		// GetSettings returns ErrNotFound when nothing was saved yet.
		GetSettings(ctx context.Context) (Settings, error)
		SaveSettings(ctx context.Context, s Settings) (Settings, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the saved settings, or the defaults (15 / 30) if none were saved.
func (svc *Service) Get(ctx context.Context) (Settings, error) {
	s, err := svc.repo.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Default(), nil
		}
		return Settings{}, errors.Wrap(err, "getting settings")
	}
	return s, nil
}

// Update expects a validated UpdateSettings; the invariant is checked again before saving.
func (svc *Service) Update(ctx context.Context, us UpdateSettings) (Settings, error) {
	s := Settings{
		AttendanceToleranceMin: *us.AttendanceToleranceMin,
		LateThresholdMin:       *us.LateThresholdMin,
		UpdatedAt:              time.Now().UTC(),
	}
	if err := s.Check(); err != nil {
		return Settings{}, err
	}
	saved, err := svc.repo.SaveSettings(ctx, s)
	if err != nil {
		return Settings{}, errors.Wrap(err, "saving settings")
	}
	return saved, nil
}
