package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-devsurvey/pkg/transport"
)

// User-facing submit messages.
const (
	msgInProgress     = "Submission in progress..."
	msgSuccess        = "Survey submitted successfully! Thank you for your participation."
	msgNetwork        = "Network error. Please check your connection and try again."
	msgMalformed      = "Invalid response from server"
	msgServerFailure  = "The server could not save your response. Please try again later."
	msgFailurePrefix  = "Failed to submit: "
	msgFixBeforeSend  = "Please fix %d error(s) before submitting"
	msgMissingServers = "Missing required fields: %s"
)

// Submit validates the form and, when valid, sends one payload. Only one
// submission may be in flight; a concurrent call is rejected with
// ErrSubmissionInProgress. On success the snapshot is deleted and the form
// reset. On any failure the answers and the snapshot are kept.
func (c *Controller) Submit(ctx context.Context) (*transport.Ack, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.notifier.Notify(Notice{Level: LevelInfo, Message: msgInProgress})
		return nil, ErrSubmissionInProgress
	}
	defer c.inFlight.Store(false)

	result := c.ValidateForm()
	if !result.Valid {
		c.notifier.Notify(Notice{Level: LevelError, Message: fmt.Sprintf(msgFixBeforeSend, len(result.Errors))})
		c.logger.Debug("submit blocked by validation", zap.Strings("fields", result.Fields()))
		return nil, &InvalidError{Result: result}
	}

	c.notifier.Busy(true)
	defer c.notifier.Busy(false)

	data := c.CollectData()
	if missing := missingServerFields(c.def.ServerRequired, data); len(missing) > 0 {
		msg := fmt.Sprintf(msgMissingServers, strings.Join(missing, ", "))
		c.notifier.Notify(Notice{Level: LevelError, Message: msgFailurePrefix + msg})
		return nil, fmt.Errorf("%w: %s", ErrMissingServerFields, strings.Join(missing, ", "))
	}
	if c.sender == nil {
		c.notifier.Notify(Notice{Level: LevelError, Message: msgFailurePrefix + "no endpoint configured"})
		return nil, ErrNoSender
	}

	payload := transport.Payload{
		Fields:       data,
		UserAgent:    c.userAgent,
		SubmissionID: c.newID(),
		SubmittedAt:  c.now(),
	}
	c.logger.Info("submitting survey",
		zap.String("submission_id", payload.SubmissionID),
		zap.Int("fields", len(data)),
	)

	ack, err := c.sender.Send(ctx, payload)
	if err != nil {
		c.logger.Warn("submission failed", zap.String("submission_id", payload.SubmissionID), zap.Error(err))
		c.notifier.Notify(Notice{Level: LevelError, Message: msgFailurePrefix + failureMessage(err)})
		return nil, fmt.Errorf("form: submit: %w", err)
	}

	// The send is confirmed; cleanup must not be skipped because the
	// caller's context ends now.
	c.saveMu.Lock()
	if c.snapshots != nil {
		if err := c.snapshots.Delete(context.WithoutCancel(ctx), c.def.StorageKey); err != nil {
			c.logger.Warn("clear snapshot after submit", zap.Error(err))
		}
	}
	var out outbox
	c.mu.Lock()
	c.resetLocked(&out)
	c.state.lastSaved = time.Time{}
	c.mu.Unlock()
	c.saveMu.Unlock()
	out.flush(c.notifier)

	c.notifier.Notify(Notice{Level: LevelSuccess, Message: msgSuccess})
	c.logger.Info("survey submitted", zap.String("submission_id", payload.SubmissionID))
	return ack, nil
}

func failureMessage(err error) string {
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.ClientError() {
			return statusErr.Message
		}
		return msgServerFailure
	}
	var malformed *transport.MalformedResponseError
	if errors.As(err, &malformed) {
		return msgMalformed
	}
	return msgNetwork
}
