package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"pagecms/internal/content"
	"pagecms/internal/credential"
	"pagecms/internal/deviceflow"
	"pagecms/pkg/logging"
)

// Controller tracks the current page and coordinates loads, saves and
// authentication for the presentation layer.
type Controller struct {
	store PageStore
	auth  Authenticator
	creds credential.Store

	observer func(View)
	logins   singleflight.Group

	mu sync.Mutex
	// generation increases with every OpenPage; results of older loads are
	// dropped so they cannot overwrite the page the user moved to.
	generation uint64
	page       string
	version    string
	view       View
	saving     map[string]bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithViewObserver registers a function called with every published view.
func WithViewObserver(fn func(View)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// New creates a Controller.
func New(store PageStore, auth Authenticator, creds credential.Store, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		auth:   auth,
		creds:  creds,
		saving: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenPage makes name the current page and loads it.
//
// A page that does not exist yields ModeNewPage and no error. When the
// store asks for authentication the device flow runs and the load is
// repeated once. Transient failures are returned and not retried.
func (c *Controller) OpenPage(ctx context.Context, name string) (View, error) {
	name, err := content.NormalizeName(name)
	if err != nil {
		return c.publish(View{Mode: ModeError, Page: name, Err: err}), err
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.page = name
	c.version = ""
	c.mu.Unlock()

	c.publish(View{Mode: ModeLoading, Page: name})

	for retries := 0; ; retries++ {
		page, err := c.store.Load(ctx, name)

		switch content.OutcomeOf(err) {
		case content.OutcomeOK:
			return c.publishLoad(gen, View{Mode: ModeViewing, Page: name, Content: page.Content, Version: page.Version}), nil

		case content.OutcomeNotFound:
			logging.Debug("Session", "Page %s does not exist, offering to create it", name)
			return c.publishLoad(gen, View{Mode: ModeNewPage, Page: name}), nil

		case content.OutcomeAuthRequired:
			if retries >= maxAuthRetries {
				return c.publishLoad(gen, View{Mode: ModeError, Page: name, Err: err}), err
			}
			logging.Info("Session", "Loading page %s requires authentication", name)
			if authErr := c.Login(ctx); authErr != nil {
				return c.View(), authErr
			}

		default:
			logging.Error("Session", err, "Failed to load page %s", name)
			return c.publishLoad(gen, View{Mode: ModeError, Page: name, Err: err}), err
		}
	}
}

// CommitEdit saves text as the new content of the current page, based on
// the version of the last load.
//
// A conflict is reported and nothing is overwritten; the caller must
// reopen the page. When the store asks for authentication the device flow
// runs and the save is repeated once. Only one save per page may be in
// flight; concurrent calls get ErrSaveInProgress.
func (c *Controller) CommitEdit(ctx context.Context, text string) (View, error) {
	c.mu.Lock()
	if c.page == "" {
		c.mu.Unlock()
		return c.View(), ErrNoPage
	}
	name, base := c.page, c.version
	if c.saving[name] {
		c.mu.Unlock()
		return c.View(), ErrSaveInProgress
	}
	c.saving[name] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.saving, name)
		c.mu.Unlock()
	}()

	for retries := 0; ; retries++ {
		cred, _ := c.creds.Get()
		page, err := c.store.Save(ctx, content.SaveRequest{Name: name, Content: text, BaseVersion: base}, cred)

		switch content.OutcomeOf(err) {
		case content.OutcomeOK:
			return c.publishSave(name, View{Mode: ModeViewing, Page: name, Content: page.Content, Version: page.Version}), nil

		case content.OutcomeAuthRequired:
			if retries >= maxAuthRetries {
				return c.publishSave(name, View{Mode: ModeError, Page: name, Err: err}), err
			}
			logging.Info("Session", "Saving page %s requires authentication", name)
			if authErr := c.Login(ctx); authErr != nil {
				return c.View(), authErr
			}

		case content.OutcomeConflict:
			logging.Warn("Session", "Page %s changed remotely since it was loaded, not saving", name)
			return c.publishSave(name, View{Mode: ModeError, Page: name, Err: err}), err

		default:
			logging.Error("Session", err, "Failed to save page %s", name)
			return c.publishSave(name, View{Mode: ModeError, Page: name, Err: err}), err
		}
	}
}

// Login runs the device flow. Concurrent callers share one flow and its
// result.
func (c *Controller) Login(ctx context.Context) error {
	_, err, shared := c.logins.Do("device-flow", func() (interface{}, error) {
		return nil, c.runDeviceFlow(ctx)
	})
	if shared {
		logging.Debug("Session", "Joined an in-progress device flow")
	}
	return err
}

func (c *Controller) runDeviceFlow(ctx context.Context) error {
	previous := c.View()

	sess, err := c.auth.Start(ctx)
	if errors.Is(err, deviceflow.ErrFlowInProgress) {
		sess, err = c.auth.State().Session, nil
	}
	if err != nil {
		c.publish(View{Mode: ModeError, Page: previous.Page, Err: err})
		return err
	}

	prompt := View{Mode: ModeAuthPrompt, Page: previous.Page}
	if sess != nil {
		prompt.UserCode = sess.UserCode
		prompt.VerificationURI = sess.VerificationURI
	}
	c.publish(prompt)

	if _, err := c.auth.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			c.auth.Cancel()
		}
		wrapped := fmt.Errorf("authentication failed: %w", err)
		c.publish(View{Mode: ModeError, Page: previous.Page, Err: wrapped})
		return wrapped
	}

	logging.Info("Session", "Authenticated via device flow")
	c.publish(previous)
	return nil
}

// Logout cancels a pending device flow and forgets the credential.
// Remote content is not touched.
func (c *Controller) Logout() error {
	c.auth.Cancel()
	if err := c.creds.Clear(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	logging.Info("Session", "Logged out")
	return nil
}

// AuthState reports whether a credential is held or a flow is pending.
func (c *Controller) AuthState() AuthState {
	if c.auth.State().Phase == deviceflow.PhaseAwaitingUserAction {
		return DeviceFlowPending
	}
	if _, ok := c.creds.Get(); ok {
		return Authenticated
	}
	return Unauthenticated
}

// View returns the last published view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) publish(v View) View {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()

	if c.observer != nil {
		c.observer(v)
	}
	return v
}

// publishLoad publishes the result of a load unless another page was
// opened in the meantime.
func (c *Controller) publishLoad(gen uint64, v View) View {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		logging.Debug("Session", "Dropping stale load result for page %s", v.Page)
		return v
	}
	if v.Mode == ModeViewing || v.Mode == ModeNewPage {
		c.version = v.Version
	}
	c.mu.Unlock()
	return c.publish(v)
}

// publishSave publishes the result of a save unless the user moved to
// another page.
func (c *Controller) publishSave(name string, v View) View {
	c.mu.Lock()
	if c.page != name {
		c.mu.Unlock()
		return v
	}
	if v.Mode == ModeViewing {
		c.version = v.Version
	}
	c.mu.Unlock()
	return c.publish(v)
}
