package worksession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
)

// RecordSample implements worksession.SessionService.
func (w *WorkSessionServiceImpl) RecordSample(ctx context.Context, req worksession.SampleRequest) (worksession.Sample, error) {
	if err := req.Validate(); err != nil {
		return worksession.Sample{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return worksession.Sample{}, err
	}

	timestamp := w.now()
	if req.Timestamp != nil {
		timestamp = req.Timestamp.In(w.cfg.Location)
	}
	metrics := req.Metrics()

	sample, err := w.SessionRepository.AppendSample(ctx, req.SessionID, func(s worksession.Session) (worksession.Sample, error) {
		if !actor.CanAccess(s.EmployeeID) {
			return worksession.Sample{}, worksession.ErrForbidden
		}
		if s.Status != worksession.StatusRunning {
			return worksession.Sample{}, worksession.ErrNotRunning
		}
		return worksession.Sample{
			Timestamp:             timestamp,
			Keystrokes:            req.Keystrokes,
			MouseClicks:           req.MouseClicks,
			MouseMoves:            req.MouseMoves,
			Scrolls:               req.Scrolls,
			ActiveWindowTitle:     req.ActiveWindowTitle,
			ActiveApplicationName: req.ActiveApplicationName,
			ProductivityScore:     worksession.Score(w.cfg.Score, metrics),
			IsIdle:                worksession.IsIdle(req.IsIdle, metrics),
			IntervalMinutes:       req.IntervalMinutes,
		}, nil
	})
	if err != nil {
		if isBusinessError(err) {
			return worksession.Sample{}, err
		}
		return worksession.Sample{}, fmt.Errorf("failed to record activity sample: %w", err)
	}

	slog.Debug("Activity sample recorded", "session_id", req.SessionID, "seq", sample.Seq, "score", sample.ProductivityScore, "is_idle", sample.IsIdle)
	return sample, nil
}

// CaptureScreenshot implements worksession.SessionService. The image, when
// present, is uploaded before the row is appended and removed again if the
// append is rejected.
func (w *WorkSessionServiceImpl) CaptureScreenshot(ctx context.Context, req worksession.ScreenshotRequest) (worksession.Screenshot, error) {
	if err := req.Validate(); err != nil {
		return worksession.Screenshot{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return worksession.Screenshot{}, err
	}

	session, err := w.getAccessible(ctx, actor, req.SessionID)
	if err != nil {
		return worksession.Screenshot{}, err
	}
	if err := w.canCapture(session); err != nil {
		return worksession.Screenshot{}, err
	}

	var imageURL *string
	if req.Image != nil {
		if w.screenshots == nil {
			return worksession.Screenshot{}, fmt.Errorf("screenshot storage is not configured")
		}
		path, err := w.screenshots.UploadScreenshot(ctx, session.EmployeeID, session.ID, req.Image.Content, req.Image.Filename)
		if err != nil {
			return worksession.Screenshot{}, err
		}
		imageURL = &path
	}

	timestamp := w.now()
	if req.Timestamp != nil {
		timestamp = req.Timestamp.In(w.cfg.Location)
	}

	shot, err := w.SessionRepository.AppendScreenshot(ctx, req.SessionID, func(s worksession.Session) (worksession.Screenshot, error) {
		if err := w.canCapture(s); err != nil {
			return worksession.Screenshot{}, err
		}
		return worksession.Screenshot{
			Timestamp:       timestamp,
			IntervalStart:   req.IntervalStart,
			IntervalEnd:     req.IntervalEnd,
			ActivityLevel:   req.ActivityLevel,
			Keystrokes:      req.Keystrokes,
			MouseClicks:     req.MouseClicks,
			IsManualCapture: req.IsManualCapture,
			IsBlurred:       req.IsBlurred,
			ImageURL:        imageURL,
		}, nil
	})
	if err != nil {
		if imageURL != nil {
			if delErr := w.screenshots.DeleteFile(ctx, *imageURL); delErr != nil {
				slog.Warn("Failed to remove orphaned screenshot image", "path", *imageURL, "error", delErr)
			}
		}
		if isBusinessError(err) {
			return worksession.Screenshot{}, err
		}
		return worksession.Screenshot{}, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	slog.Debug("Screenshot captured", "session_id", req.SessionID, "screenshot_id", shot.ID, "manual", shot.IsManualCapture)
	return shot, nil
}

// canCapture checks the session state and the screenshot ceiling.
func (w *WorkSessionServiceImpl) canCapture(s worksession.Session) error {
	if s.Status != worksession.StatusRunning && s.Status != worksession.StatusPaused {
		return worksession.ErrSessionNotCapturing
	}
	if s.ActiveScreenshots() >= w.cfg.ScreenshotCeiling {
		return worksession.ErrScreenshotLimitReached
	}
	return nil
}

// SoftDeleteScreenshot implements worksession.SessionService.
func (w *WorkSessionServiceImpl) SoftDeleteScreenshot(ctx context.Context, sessionID, screenshotID string) (worksession.Screenshot, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return worksession.Screenshot{}, err
	}

	if _, err := w.getAccessible(ctx, actor, sessionID); err != nil {
		return worksession.Screenshot{}, err
	}

	shot, err := w.SessionRepository.SoftDeleteScreenshot(ctx, sessionID, screenshotID, w.now())
	if err != nil {
		if isBusinessError(err) {
			return worksession.Screenshot{}, err
		}
		return worksession.Screenshot{}, fmt.Errorf("failed to delete screenshot: %w", err)
	}

	slog.Info("Screenshot deleted", "session_id", sessionID, "screenshot_id", screenshotID, "deleted_by", actor.EmployeeID)
	return shot, nil
}

// isBusinessError reports whether err belongs to the work session domain and
// should reach the caller unwrapped.
func isBusinessError(err error) bool {
	for _, target := range []error{
		worksession.ErrSessionNotFound,
		worksession.ErrForbidden,
		worksession.ErrNotRunning,
		worksession.ErrSessionNotCapturing,
		worksession.ErrScreenshotLimitReached,
		worksession.ErrScreenshotNotFound,
		worksession.ErrScreenshotAlreadyDeleted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
