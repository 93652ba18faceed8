package caldb

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store wraps a Service with the lifecycle a run needs: idempotent initialisation and registration.
type Store struct {
	svc    Service
	logger *zap.Logger
}

type StoreOption func(s *Store)

// StoreLogger sets the logger reporting initialisation and registrations.
func StoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store on svc.
func NewStore(svc Service, opts ...StoreOption) *Store {
	store := &Store{svc: svc, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}

	return store
}

// EnsureInitialized initialises the database and reports whether it was created. An already initialised database
// is not an error: its content is listed instead. Any other failure is returned.
func (s *Store) EnsureInitialized(ctx context.Context) (bool, error) {
	err := s.svc.Init(ctx)
	if errors.Is(err, ErrAlreadyInitialized) {
		s.logger.Info("calibration database already exists")

		records, err := s.svc.ListFiles(ctx)
		if err != nil {
			return false, errors.Wrap(err, "unable to list existing calibrations")
		}

		for _, rec := range records {
			s.logger.Info("calibration", zap.String("file", rec.Path), zap.String("kind", rec.Kind))
		}

		return false, nil
	}

	if err != nil {
		return false, errors.Wrap(err, "unable to initialize calibration database")
	}

	s.logger.Info("calibration database created")

	return true, nil
}

// Register adds path to the database.
func (s *Store) Register(ctx context.Context, path string) error {
	err := s.svc.Add(ctx, path)
	if err != nil {
		return errors.Wrap(err, "unable to register calibration")
	}

	s.logger.Debug("calibration registered", zap.String("file", path), zap.String("kind", KindFromPath(path)))

	return nil
}

// Remove drops path from the database.
func (s *Store) Remove(ctx context.Context, path string) error {
	return errors.Wrap(s.svc.Remove(ctx, path), "unable to remove calibration")
}

// List returns the registered calibrations.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	records, err := s.svc.ListFiles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list calibrations")
	}

	return records, nil
}
