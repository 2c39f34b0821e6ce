// Package account talks to the vendor account service.
//
// This package manages:
//   - Login with account credentials → bearer token, identity certificate
//     reference, account push topic
//   - Device enumeration with parsed settings/state blobs
//   - Structural token validity checks (well-formed JWT, unexpired)
//   - Client identifier generation
//
// # Architecture
//
// The account service is a plain REST boundary in front of the broker: it
// issues the token and names the identity certificate the broker session
// must present. The engine calls Login lazily whenever TokenValid reports
// the cached token stale, and every fresh login invalidates all prior
// broker state.
//
//	Lumen Core → Account REST API → (credentials for) Vendor Broker
//
// The certificate pairs themselves are provisioned out of band into the
// configured certificate directory; the login response only selects one by
// reference.
//
// # Usage
//
//	client := account.NewClient(account.Options{
//	    BaseURL:  cfg.Account.APIBaseURL,
//	    APIKey:   cfg.Account.APIKey,
//	    Email:    cfg.Account.Email,
//	    Password: cfg.Account.Password,
//	    ClientID: cfg.Account.ClientID,
//	    CertDir:  cfg.Account.CertDir,
//	})
//
//	session, err := client.Login(ctx)
//	if err != nil {
//	    return err
//	}
//	records, err := client.ListDevices(ctx, session.Token)
//
// # Thread Safety
//
// Client is immutable after construction; all methods are safe for
// concurrent use. Sessions are plain values owned by the caller.
package account
