// Package service runs enrollment and authentication: extract, validate,
// build or match, persist, audit.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/extractor"
	"github.com/andresmejia3/faceguard/internal/lock"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TemplateStore persists templates and audit records. Implemented by
// store.Store and store.MemoryStore.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, tpl *types.EnrollmentTemplate) error
	ReplaceTemplate(ctx context.Context, tpl *types.EnrollmentTemplate) error
	DeleteTemplate(ctx context.Context, ownerID string) (bool, error)
	GetTemplate(ctx context.Context, ownerID string) (*types.EnrollmentTemplate, error)
	ListTemplates(ctx context.Context) ([]types.TemplateInfo, error)
	RecordAttempt(ctx context.Context, a *types.AuthAttempt) error
	ListAttempts(ctx context.Context, ownerID string, limit int) ([]types.AuthAttempt, error)
}

// Options tunes a Service. Zero values pick defaults.
type Options struct {
	Concurrency int              // parallel extractor calls per enrollment (default 3)
	Now         func() time.Time // clock (default time.Now)
}

type Service struct {
	extractor   extractor.Extractor
	store       TemplateStore
	locker      lock.Locker
	policy      biometric.Policy
	concurrency int
	now         func() time.Time
}

func New(ext extractor.Extractor, st TemplateStore, lk lock.Locker, policy biometric.Policy, opts Options) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if lk == nil {
		lk = lock.NewKeyedMutex()
	}
	return &Service{
		extractor:   ext,
		store:       st,
		locker:      lk,
		policy:      policy,
		concurrency: opts.Concurrency,
		now:         opts.Now,
	}
}

// Policy returns the thresholds in effect.
func (s *Service) Policy() biometric.Policy {
	return s.policy
}

// Enroll creates the owner's first template from images.
func (s *Service) Enroll(ctx context.Context, ownerID string, images [][]byte) (*types.EnrollmentTemplate, error) {
	return s.enroll(ctx, ownerID, images, types.EventEnroll)
}

// ReEnroll replaces an existing template. The old template stays in place
// until the new one is fully built.
func (s *Service) ReEnroll(ctx context.Context, ownerID string, images [][]byte) (*types.EnrollmentTemplate, error) {
	return s.enroll(ctx, ownerID, images, types.EventReEnroll)
}

func (s *Service) enroll(ctx context.Context, ownerID string, images [][]byte, kind types.EventKind) (*types.EnrollmentTemplate, error) {
	if err := s.policy.CheckCaptureCount(len(images)); err != nil {
		s.audit(ctx, kind, ownerID, "", err)
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("acquire enrollment lock: %w", err)
	}
	defer unlock()

	_, err = s.store.GetTemplate(ctx, ownerID)
	switch {
	case err == nil && kind == types.EventEnroll:
		err = biometric.ErrAlreadyEnrolled
	case errors.Is(err, biometric.ErrNotEnrolled) && kind == types.EventEnroll:
		err = nil
	}
	if err != nil {
		s.audit(ctx, kind, ownerID, "", err)
		return nil, err
	}

	descs, err := s.extractAll(ctx, images)
	if err != nil {
		s.audit(ctx, kind, ownerID, "", err)
		return nil, err
	}

	tpl, err := biometric.BuildTemplate(ownerID, descs, s.now())
	if err != nil {
		s.audit(ctx, kind, ownerID, "", err)
		return nil, err
	}

	if kind == types.EventEnroll {
		err = s.store.CreateTemplate(ctx, tpl)
	} else {
		err = s.store.ReplaceTemplate(ctx, tpl)
	}
	if err != nil {
		s.audit(ctx, kind, ownerID, "", err)
		return nil, err
	}

	s.audit(ctx, kind, ownerID, tpl.TemplateID, nil)
	return tpl, nil
}

// extractAll runs detection and validation for every image, at most
// s.concurrency at a time. The error of the lowest failing index is
// returned so the reported capture does not depend on scheduling. Once that
// failure is final (every earlier capture succeeded) the remaining images
// are not sent to the extractor and in-flight calls are cancelled.
func (s *Service) extractAll(ctx context.Context, images [][]byte) ([]types.Descriptor, error) {
	descs := make([]types.Descriptor, len(images))
	errs := make([]error, len(images))
	done := make([]bool, len(images))

	var (
		mu      sync.Mutex
		settled int // images[:settled] all extracted successfully
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			desc, err := s.capture(gctx, img)

			mu.Lock()
			defer mu.Unlock()
			descs[i], errs[i], done[i] = desc, err, true
			for settled < len(images) && done[settled] && errs[settled] == nil {
				settled++
			}
			if settled < len(images) && done[settled] {
				return &biometric.CaptureError{Index: settled, Err: errs[settled]}
			}
			return nil
		})
	}
	g.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &biometric.CaptureError{Index: i, Err: err}
		}
	}
	return descs, nil
}

// capture extracts and validates a single image.
func (s *Service) capture(ctx context.Context, image []byte) (types.Descriptor, error) {
	faces, err := s.extractor.Detect(ctx, image)
	if err != nil {
		if !extractor.IsDetectionFailure(err) {
			err = fmt.Errorf("%w: %v", biometric.ErrDetectionFailed, err)
		}
		return nil, err
	}
	return biometric.ValidateCapture(faces, s.policy)
}

// Disable removes the owner's template. Disabling twice is not an error.
func (s *Service) Disable(ctx context.Context, ownerID string) error {
	unlock, err := s.locker.Lock(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("acquire enrollment lock: %w", err)
	}
	defer unlock()

	deleted, err := s.store.DeleteTemplate(ctx, ownerID)
	if err != nil {
		s.audit(ctx, types.EventDisable, ownerID, "", err)
		return err
	}
	if !deleted {
		logger.Debug("disable on owner without template", logger.LoggerOptions{Key: "owner", Data: ownerID})
	}
	s.audit(ctx, types.EventDisable, ownerID, "", nil)
	return nil
}

// Status reports whether face authentication is enabled. It never exposes
// the descriptor.
func (s *Service) Status(ctx context.Context, ownerID string) (types.Status, error) {
	tpl, err := s.store.GetTemplate(ctx, ownerID)
	if errors.Is(err, biometric.ErrNotEnrolled) {
		return types.Status{}, nil
	}
	if err != nil {
		return types.Status{}, err
	}
	enrolledAt := tpl.CreatedAt
	return types.Status{Enabled: true, EnrolledAt: &enrolledAt, HasTemplate: true}, nil
}

// Authenticate matches one live image against the owner's template. A
// non-match is a result, not an error. Every call leaves an audit record.
func (s *Service) Authenticate(ctx context.Context, ownerID string, image []byte) (types.MatchResult, error) {
	res, templateID, err := s.measure(ctx, ownerID, image)
	if err != nil {
		s.audit(ctx, types.EventAuthenticate, ownerID, templateID, err)
		return types.MatchResult{}, err
	}

	outcome := types.OutcomeSuccess
	reason := ""
	if !res.IsMatch {
		outcome = types.OutcomeRejected
		reason = "NoMatch"
	}
	s.record(ctx, &types.AuthAttempt{
		OwnerID:           ownerID,
		TemplateID:        templateID,
		Kind:              types.EventAuthenticate,
		Outcome:           outcome,
		Reason:            reason,
		ConfidencePercent: res.ConfidencePercent,
	})
	return res, nil
}

// Measure runs the authentication pipeline without writing an audit record.
// Used for threshold calibration.
func (s *Service) Measure(ctx context.Context, ownerID string, image []byte) (types.MatchResult, error) {
	res, _, err := s.measure(ctx, ownerID, image)
	return res, err
}

func (s *Service) measure(ctx context.Context, ownerID string, image []byte) (types.MatchResult, string, error) {
	tpl, err := s.store.GetTemplate(ctx, ownerID)
	if err != nil {
		return types.MatchResult{}, "", err
	}

	live, err := s.capture(ctx, image)
	if err != nil {
		return types.MatchResult{}, tpl.TemplateID, err
	}

	if err := biometric.CheckComparable(tpl.Descriptor, live); err != nil {
		logger.Error("stored template cannot be compared with live capture",
			logger.LoggerOptions{Key: "owner", Data: ownerID},
			logger.LoggerOptions{Key: "template", Data: tpl.TemplateID},
			logger.LoggerOptions{Key: "error", Data: err})
	}
	return biometric.Match(tpl.Descriptor, live, s.policy), tpl.TemplateID, nil
}

// List returns template metadata for every enrolled owner.
func (s *Service) List(ctx context.Context) ([]types.TemplateInfo, error) {
	return s.store.ListTemplates(ctx)
}

// History returns the owner's most recent audit records.
func (s *Service) History(ctx context.Context, ownerID string, limit int) ([]types.AuthAttempt, error) {
	return s.store.ListAttempts(ctx, ownerID, limit)
}

// audit records the outcome of an operation that ended with err (nil for success).
func (s *Service) audit(ctx context.Context, kind types.EventKind, ownerID, templateID string, err error) {
	a := &types.AuthAttempt{
		OwnerID:    ownerID,
		TemplateID: templateID,
		Kind:       kind,
		Outcome:    types.OutcomeSuccess,
	}
	if err != nil {
		a.Reason = biometric.Code(err)
		a.Outcome = types.OutcomeRejected
		if a.Reason == "InternalError" || extractor.IsDetectionFailure(err) {
			a.Outcome = types.OutcomeError
		}
	}
	s.record(ctx, a)
}

// record writes the audit entry and logs it. A failed write is logged and
// does not change the result returned to the caller.
func (s *Service) record(ctx context.Context, a *types.AuthAttempt) {
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()

	if err := s.store.RecordAttempt(context.WithoutCancel(ctx), a); err != nil {
		logger.Error("failed to write audit record",
			logger.LoggerOptions{Key: "owner", Data: a.OwnerID},
			logger.LoggerOptions{Key: "kind", Data: a.Kind},
			logger.LoggerOptions{Key: "error", Data: err})
	}

	logger.Info("face auth event",
		logger.LoggerOptions{Key: "owner", Data: a.OwnerID},
		logger.LoggerOptions{Key: "template", Data: a.TemplateID},
		logger.LoggerOptions{Key: "kind", Data: a.Kind},
		logger.LoggerOptions{Key: "outcome", Data: a.Outcome},
		logger.LoggerOptions{Key: "reason", Data: a.Reason},
		logger.LoggerOptions{Key: "confidence", Data: a.ConfidencePercent})
}
