// Package saver is the application service behind the CLI.
//
// A Service resolves the bearer token for an account, then fetches the
// saved listing, reads the profile, exports results or unsaves items.
//
//	svc := saver.New(cfg, credentialManager, log)
//	rs, err := svc.Saved(ctx, "spez")
//	path, err := svc.Export(rs, storage.FormatJSON)
package saver
