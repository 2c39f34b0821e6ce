package client

import (
	"context"
	"fmt"

	"github.com/ewanmcc/lumen-core/internal/account"
)

// EnsureBrokerSession makes sure a live, authenticated broker session
// exists, establishing or replacing one as needed. It is idempotent: a
// connected session whose token is still structurally valid is reused
// as-is.
//
// Replacing a session is a full reset, in a fixed order: authenticate,
// tear down the old connection, clear every device's broker
// reachability flag (one update event per formerly reachable device),
// open the fresh connection, subscribe to the account push topic.
// Reachability is rediscovered through status pushes on the new
// session. The reset holds the session lock exclusively, so in-flight
// sends finish against the old session first and new sends wait for
// the fresh one.
//
// Authentication and connection failures propagate to the caller;
// there is no retry at this layer. Re-invoke to try again.
func (c *Client) EnsureBrokerSession(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.session != nil && c.creds != nil &&
		account.TokenValid(c.creds.Token) && c.session.IsConnected() {
		return nil
	}

	creds, err := c.account.Login(ctx)
	if err != nil {
		return fmt.Errorf("ensure broker session: %w", err)
	}

	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.logWarn("stale broker session close failed", "error", err)
		}
		c.session = nil
	}

	// Everything the old session claimed about reachability died with
	// it.
	for _, dev := range c.registry.ClearBrokerConnected() {
		c.events.OnDeviceUpdate(dev, nil)
	}

	endpoint := c.endpoint
	endpoint.ClientID = c.account.ClientID()
	endpoint.CertFile = creds.CertFile
	endpoint.KeyFile = creds.KeyFile

	session, err := c.dial(endpoint)
	if err != nil {
		return fmt.Errorf("ensure broker session: %w", err)
	}

	if err := session.Subscribe(creds.Topic, c.handlePush); err != nil {
		if closeErr := session.Close(); closeErr != nil {
			c.logWarn("unsubscribed session close failed", "error", closeErr)
		}
		return fmt.Errorf("ensure broker session: subscribe %s: %w", creds.Topic, err)
	}

	c.session = session
	c.creds = creds

	c.logInfo("broker session established",
		"host", c.endpoint.Host,
		"topic", creds.Topic,
	)
	return nil
}
