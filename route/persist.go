package route

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/o0olele/breadcrumbs-go/trail"
)

// DefaultPersistKey is used when no server identity is known.
const DefaultPersistKey = "singleplayer"

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeKey turns a server identity into a storage key.
func SanitizeKey(server string) string {
	if server == "" {
		return DefaultPersistKey
	}
	return unsafeKeyChars.ReplaceAllString(server, "_")
}

// Persister stores encoded trails. Load returns a nil blob and no error when
// nothing was saved under key.
type Persister interface {
	Load(key string) ([]byte, error)
	Save(key string, blob []byte) error
}

// Serialize encodes the trail.
func (c *Controller) Serialize() ([]byte, error) {
	return trail.Encode(c.recorder.State())
}

// Restore replaces the trail with blob when it was saved for context. It
// reports whether the trail was replaced.
func (c *Controller) Restore(blob []byte, context string) (bool, error) {
	st, err := trail.Decode(blob)
	if err != nil {
		return false, fmt.Errorf("restore trail: %w", err)
	}
	return c.recorder.Restore(st, context), nil
}

// Flush saves the trail now if it changed since the last save.
func (c *Controller) Flush() error {
	if c.persister == nil || !c.dirty {
		return nil
	}
	return c.save()
}

func (c *Controller) load(context string) {
	if c.persister == nil {
		return
	}

	blob, err := c.persister.Load(c.opts.PersistKey)
	if err != nil {
		persistErrors.WithLabelValues("load").Inc()
		c.logger.Warn("Failed to load trail", zap.String("key", c.opts.PersistKey), zap.Error(err))
		return
	}
	if blob == nil {
		return
	}

	ok, err := c.Restore(blob, context)
	if err != nil {
		persistErrors.WithLabelValues("load").Inc()
		c.logger.Warn("Discarding unreadable trail", zap.String("key", c.opts.PersistKey), zap.Error(err))
		return
	}
	if ok {
		c.dirty = false
		c.logger.Info("Trail restored",
			zap.String("context", context),
			zap.Int("points", c.recorder.Len()))
	}
}

func (c *Controller) autosave(tick int64) {
	if c.persister == nil || !c.dirty || tick-c.lastSaveTick < c.opts.SaveIntervalTicks {
		return
	}
	if err := c.save(); err != nil {
		c.logger.Warn("Failed to save trail", zap.Error(err))
	}
	c.lastSaveTick = tick
}

func (c *Controller) save() error {
	blob, err := c.Serialize()
	if err == nil {
		err = c.persister.Save(c.opts.PersistKey, blob)
	}
	if err != nil {
		persistErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("save trail %s: %w", c.opts.PersistKey, err)
	}
	c.dirty = false
	return nil
}
